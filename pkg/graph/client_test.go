package graph_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloudinv/argexport/pkg/auth"
	"github.com/cloudinv/argexport/pkg/graph"
)

func TestClientQuery(t *testing.T) {
	var got graph.QueryRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/providers/Microsoft.ResourceGraph/resources", r.URL.Path)
		require.Equal(t, graph.DefaultAPIVersion, r.URL.Query().Get("api-version"))
		require.Equal(t, "Bearer sometoken", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("x-ms-user-quota-remaining", "11")
		w.Header().Set("x-ms-user-quota-resets-after", "00:00:05")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"totalRecords": 3,
			"count": 2,
			"data": [
				{"id": "/subscriptions/s/vm1", "name": "vm1", "type": "microsoft.compute/virtualmachines"},
				{"id": "/subscriptions/s/vm2", "name": "vm2", "type": "microsoft.compute/virtualmachines"}
			]
		}`))
	}))
	defer srv.Close()

	c := graph.New(auth.StaticToken("sometoken"), graph.WithEndpoint(srv.URL))

	page, err := c.Query(context.Background(), "Resources | where type =~ 'x'", 1000, 2000)
	require.NoError(t, err)

	require.Equal(t, "Resources | where type =~ 'x'", got.Query)
	require.NotNil(t, got.Options)
	require.Equal(t, 1000, got.Options.Top)
	require.Equal(t, 2000, got.Options.Skip)
	require.Equal(t, "objectArray", got.Options.ResultFormat)

	require.EqualValues(t, 3, page.TotalRecords)
	require.EqualValues(t, 2, page.Count)
	require.Len(t, page.Records, 2)
	require.Equal(t, "/subscriptions/s/vm1", page.Records[0].ID)
	require.Equal(t, "vm1", page.Records[0].Name)
	require.Equal(t, "microsoft.compute/virtualmachines", page.Records[0].Type)

	rl := c.RateLimitInfo()
	require.Equal(t, 11, rl.QuotaRemaining)
	require.Equal(t, 5*time.Second, rl.QuotaResetsAfter)
}

func TestClientQueryResponseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{
			"error": {
				"code": "AuthorizationFailed",
				"message": "The client does not have authorization.",
				"details": [{"code": "Forbidden", "message": "denied"}]
			}
		}`))
	}))
	defer srv.Close()

	c := graph.New(auth.StaticToken("sometoken"), graph.WithEndpoint(srv.URL))

	_, err := c.Query(context.Background(), "Resources", 10, 0)
	require.Error(t, err)

	resErr, ok := err.(graph.ResponseError)
	require.True(t, ok, "expected ResponseError, got %T", err)
	require.Equal(t, http.StatusForbidden, resErr.Status)
	require.Equal(t, "AuthorizationFailed", resErr.Code)
	require.Contains(t, resErr.Error(), "403 AuthorizationFailed")
}

func TestClientQueryRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := graph.New(auth.StaticToken("sometoken"), graph.WithEndpoint(srv.URL))

	_, err := c.Query(context.Background(), "Resources", 10, 0)
	require.Error(t, err)

	rlErr, ok := err.(graph.RateLimitError)
	require.True(t, ok, "expected RateLimitError, got %T", err)
	require.Equal(t, 7*time.Second, rlErr.RetryAfter)
}

func TestClientQueryDecodingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := graph.New(auth.StaticToken("sometoken"), graph.WithEndpoint(srv.URL))

	_, err := c.Query(context.Background(), "Resources", 10, 0)
	require.Error(t, err)

	_, ok := err.(graph.ResponseDecodingError)
	require.True(t, ok, "expected ResponseDecodingError, got %T", err)
}

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

type cannedTransport struct {
	body *trackedBody
}

func (tr *cannedTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{},
		Body:       tr.body,
	}, nil
}

func TestClientClosesResponseBody(t *testing.T) {
	body := &trackedBody{Reader: strings.NewReader(`{"totalRecords":0,"count":0,"data":[]}`)}

	c := graph.New(auth.StaticToken("sometoken"))
	c.Transport = &cannedTransport{body: body}

	_, err := c.Query(context.Background(), "Resources", 10, 0)
	require.NoError(t, err)
	require.True(t, body.closed, "original response body should be closed after draining")
}

func TestClientTokenErrorStopsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	c := graph.New(auth.StaticToken(""), graph.WithEndpoint(srv.URL))

	_, err := c.Query(context.Background(), "Resources", 10, 0)
	require.Error(t, err)
}
