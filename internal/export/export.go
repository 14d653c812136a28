package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/cloudinv/argexport/internal/config"
	"github.com/cloudinv/argexport/pkg/data"
	"github.com/cloudinv/argexport/pkg/graph"
	"github.com/cloudinv/argexport/pkg/log"
)

// QueryClient is the paged query service: up to top records of the query's
// result set, starting at offset skip.
type QueryClient interface {
	Query(ctx context.Context, query string, top, skip int) (*data.Page, error)
}

type Exporter struct {
	log.Logger
	*config.Runtime

	Client QueryClient
}

// Status is the outcome of one resource type. File is empty when no file was
// produced (zero records, or the write failed).
type Status struct {
	ResourceType string
	Records      int
	File         string
	Err          error
}

// Run processes every requested type independently and sequentially. One
// type's failure never prevents the others from being attempted; failures
// are aggregated into the returned error, and the per-type outcomes are
// returned in request order.
func (e *Exporter) Run(ctx context.Context) ([]Status, error) {
	if e.Logger == nil {
		e.Logger = log.NewLogger(log.LevelInfo, os.Stderr, "[export] ")
	}

	if err := os.MkdirAll(e.OutputDirectory, 0777); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %s", e.OutputDirectory)
	}

	types := e.Types()
	statuses := make([]Status, 0, len(types))

	var err error
	for _, rt := range types {
		st := e.exportType(ctx, rt)
		statuses = append(statuses, st)
		if st.Err != nil {
			err = multierror.Append(err, errors.Wrap(st.Err, rt))
		}
	}

	return statuses, err
}

func (e *Exporter) exportType(ctx context.Context, rt string) Status {
	st := Status{ResourceType: rt}

	q := graph.TypeQuery{ResourceType: rt, SubscriptionID: e.SubscriptionID}
	e.Infof("querying %s", rt)
	e.Debugf("query: %s", q)

	var set data.ResultSet
	skip := 0
	for iteration := 0; ; iteration++ {
		if iteration >= e.MaxIterations {
			e.Warnf("%s: iteration bound %d reached, keeping the %d records collected so far", rt, e.MaxIterations, set.Len())
			break
		}

		page, qErr := e.Client.Query(ctx, q.String(), e.PageSize, skip)
		if qErr != nil {
			e.Warnf("%s: query failed at offset %d: %v", rt, skip, qErr)
			st.Err = errors.Wrapf(qErr, "query at offset %d", skip)
			break
		}

		if page == nil || len(page.Records) == 0 {
			break
		}

		if iteration == 0 && page.TotalRecords > 0 {
			e.Infof("%s: expecting %d records", rt, page.TotalRecords)
		}

		set.Append(page)

		if len(page.Records) < e.PageSize {
			break
		}

		skip += e.PageSize
	}

	if set.Empty() {
		if st.Err == nil {
			e.Infof("%s: no records found, skipping file", rt)
		}
		return st
	}

	st.Records = set.Len()
	file := filepath.Join(e.OutputDirectory, Filename(rt))
	if wErr := e.write(file, &set); wErr != nil {
		e.Warnf("%s: writing %s: %v", rt, file, wErr)
		st.Err = multierror.Append(st.Err, errors.Wrapf(wErr, "writing %s", file)).ErrorOrNil()
		return st
	}

	st.File = file
	e.Infof("%s: wrote %d records to %s", rt, st.Records, file)
	return st
}

func (e *Exporter) write(path string, set *data.ResultSet) error {
	var buf bytes.Buffer
	enc := data.Encoder{MaxDepth: e.MaxDepth}
	if err := enc.Encode(&buf, set); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0666)
}

// Filename derives the output file name from a resource type, replacing
// every path separator with a dash.
func Filename(resourceType string) string {
	return strings.ReplaceAll(resourceType, "/", "-") + ".json"
}
