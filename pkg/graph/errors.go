package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

type ResponseError struct {
	Status  int
	Code    string
	Message string
	Errors  []string
}

type ResponseDecodingError struct {
	ResponseError
	Body []byte
}

type RateLimitError struct {
	ResponseError
	RetryAfter time.Duration
}

func (e ResponseError) Error() string {
	const (
		unknown = "unknown error"
		errSep  = ", "
	)

	msg := e.Message
	if msg == "" {
		msg = strings.Join(e.Errors, errSep)
	}
	if msg == "" && e.Status > 0 {
		msg = http.StatusText(e.Status)
	}
	if msg == "" {
		msg = unknown
	}

	switch {
	case e.Status > 0 && e.Code != "":
		return fmt.Sprintf("%03d %s: %s", e.Status, e.Code, msg)
	case e.Status > 0:
		return fmt.Sprintf("%03d: %s", e.Status, msg)
	case e.Code != "":
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}

	return msg
}

func NewResponseDecodingError(res *http.Response, err error, data []byte) error {
	if err == nil {
		return nil
	}

	return ResponseDecodingError{
		ResponseError: ResponseError{
			Status:  res.StatusCode,
			Message: err.Error(),
		},
		Body: data,
	}
}

// CheckResponseError maps a non-2xx management API response onto a typed
// error, decoding the ARM `{"error": {...}}` envelope when present.
func CheckResponseError(res *http.Response) error {
	if http.StatusOK <= res.StatusCode && res.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	var armError struct {
		Error struct {
			Code    string      `json:"code"`
			Message string      `json:"message"`
			Details interface{} `json:"details"`
		} `json:"error"`
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if len(body) > 0 {
		if err := json.Unmarshal(body, &armError); err != nil {
			return NewResponseDecodingError(res, err, body)
		}
	}

	responseError := ResponseError{
		Status:  res.StatusCode,
		Code:    armError.Error.Code,
		Message: armError.Error.Message,
	}

	responseError.setErrors(armError.Error.Details)
	return wrapSpecificError(res, responseError)
}

func wrapSpecificError(res *http.Response, err ResponseError) error {
	if err.Status == http.StatusTooManyRequests {
		f, fe := retryAfter(res)
		if fe != nil {
			return fe
		}
		return RateLimitError{
			ResponseError: err,
			RetryAfter:    f,
		}
	}

	return err
}

func (e *ResponseError) setErrors(details interface{}) {
	switch details := details.(type) {
	case nil:
		return
	case string:
		e.Errors = []string{details}
	case []interface{}:
		e.Errors = coerceErrorSlice(details)
	case map[string]interface{}:
		e.Errors = coerceErrorMap(details)
	default:
		if e.Message == "" {
			e.Message = fmt.Sprint(details)
		} else {
			e.Message = fmt.Sprintf("%s: %v", e.Message, details)
		}
	}
}

func coerceError(v interface{}) string {
	const sep = ", "

	switch v := v.(type) {
	case string:
		return v
	case []interface{}:
		return strings.Join(coerceErrorSlice(v), sep)
	case []string:
		return strings.Join(v, sep)
	case map[string]interface{}:
		return strings.Join(coerceErrorMap(v), sep)
	default:
		return fmt.Sprint(v)
	}
}

func coerceErrorSlice(v []interface{}) []string {
	rv := make([]string, len(v))
	for idx, v := range v {
		rv[idx] = coerceError(v)
	}
	return rv
}

func coerceErrorMap(v map[string]interface{}) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rv := make([]string, len(keys))
	for idx, k := range keys {
		rv[idx] = fmt.Sprintf("%s: %s", k, coerceError(v[k]))
	}
	return rv
}
