package data_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudinv/argexport/pkg/data"
)

func TestRecordUnmarshal(t *testing.T) {
	raw := `{"id":"/subscriptions/s/rg/r","name":"r","type":"microsoft.web/sites","location":"westeurope"}`

	var rec data.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	require.Equal(t, "/subscriptions/s/rg/r", rec.ID)
	require.Equal(t, "r", rec.Name)
	require.Equal(t, "microsoft.web/sites", rec.Type)
	require.JSONEq(t, raw, string(rec.Raw))
}

func TestRecordUnmarshalInvalid(t *testing.T) {
	var rec data.Record
	require.Error(t, rec.UnmarshalJSON([]byte("{nope")))
}

func TestRecordMarshalPreservesRaw(t *testing.T) {
	raw := `{"id":"x","properties":{"nested":true}}`
	rec := data.Record{Raw: []byte(raw)}

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	require.JSONEq(t, raw, string(out))
}

func TestRecordMarshalEmpty(t *testing.T) {
	out, err := json.Marshal(data.Record{})
	require.NoError(t, err)
	require.Equal(t, "null", string(out))
}
