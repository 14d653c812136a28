package data

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Record is one resource returned by a graph query. The raw payload is kept
// verbatim; the common envelope fields are extracted for logging and tests.
type Record struct {
	ID   string
	Name string
	Type string
	Raw  []byte
}

func (r *Record) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("invalid JSON")
	}

	r.Raw = make([]byte, len(data))
	copy(r.Raw, data)

	r.ID = gjson.GetBytes(data, "id").String()
	r.Name = gjson.GetBytes(data, "name").String()
	r.Type = gjson.GetBytes(data, "type").String()
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	raw := r.Raw
	if len(raw) == 0 {
		raw = []byte("null")
	}
	return raw, nil
}
