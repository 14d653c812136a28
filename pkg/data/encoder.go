package data

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const DefaultMaxDepth = 10

// Encoder serializes a ResultSet as a single indented JSON array. Values
// nested deeper than MaxDepth levels are collapsed to their compact JSON
// text as a string.
type Encoder struct {
	MaxDepth int
}

func (e Encoder) maxDepth() int {
	if e.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return e.MaxDepth
}

func (e Encoder) Encode(w io.Writer, set *ResultSet) error {
	depth := e.maxDepth()
	out := make([]interface{}, 0, set.Len())
	for _, rec := range set.Records() {
		var v interface{}
		if err := json.Unmarshal(rec.Raw, &v); err != nil {
			return errors.Wrapf(err, "decoding record %q", rec.ID)
		}
		out = append(out, clampDepth(v, depth))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func clampDepth(v interface{}, depth int) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		if depth <= 0 {
			return collapse(v)
		}
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[k] = clampDepth(val, depth-1)
		}
		return m
	case []interface{}:
		if depth <= 0 {
			return collapse(v)
		}
		s := make([]interface{}, len(v))
		for i, val := range v {
			s[i] = clampDepth(val, depth-1)
		}
		return s
	default:
		return v
	}
}

func collapse(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
