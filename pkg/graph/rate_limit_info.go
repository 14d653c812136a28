package graph

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// RateLimitInfo tracks the graph quota headers. Diagnostic only: the client
// never retries, callers just see the numbers in trace output.
type RateLimitInfo struct {
	QuotaRemaining   int
	QuotaResetsAfter time.Duration
	RetryAfter       time.Duration
}

func (rl *RateLimitInfo) update(res *http.Response) error {
	if res == nil {
		return errors.New("nil response")
	}

	var err error

	if h := res.Header.Get(hQuotaRemaining); h != "" {
		rl.QuotaRemaining, err = strconv.Atoi(h)
		if err != nil {
			return errors.Wrap(err, "error converting quota remaining to an integer")
		}
	}

	if h := res.Header.Get(hQuotaResetsAfter); h != "" {
		rl.QuotaResetsAfter, err = parseQuotaWindow(h)
		if err != nil {
			return errors.Wrap(err, "error converting quota reset window to a duration")
		}
	}

	rl.RetryAfter, err = retryAfter(res)
	if err != nil {
		return errors.Wrap(err, "error converting retry after to a duration")
	}

	return nil
}

// parseQuotaWindow parses the hh:mm:ss window format of
// x-ms-user-quota-resets-after.
func parseQuotaWindow(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, errors.Errorf("unexpected quota window format: %q", s)
	}

	var d time.Duration
	for _, unit := range []time.Duration{time.Hour, time.Minute, time.Second} {
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, err
		}
		d += time.Duration(n) * unit
		parts = parts[1:]
	}

	return d, nil
}

func retryAfter(res *http.Response) (time.Duration, error) {
	const bits = 64
	h := res.Header.Get(hRetryAfter)
	if h == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(h, bits)
	if err != nil {
		return 0, err
	}
	return time.Duration(float64(time.Second) * f), nil
}
