package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/cloudinv/argexport/pkg/auth"
	"github.com/cloudinv/argexport/pkg/data"
	"github.com/cloudinv/argexport/pkg/log"
)

const (
	DefaultEndpoint    = "https://management.azure.com"
	DefaultAPIVersion  = "2021-03-01"
	DefaultUserAgent   = "argexport/1.0.0"
	DefaultHTTPTimeout = 5 * time.Minute

	queryPath    = "providers/Microsoft.ResourceGraph/resources"
	resultFormat = "objectArray"

	mApplicationJSON = "application/json"

	hAccept           = "Accept"
	hAuthorization    = "Authorization"
	hContentType      = "Content-Type"
	hQuotaRemaining   = "x-ms-user-quota-remaining"
	hQuotaResetsAfter = "x-ms-user-quota-resets-after"
	hRetryAfter       = "Retry-After"
	hUserAgent        = "User-Agent"
)

func New(tokens auth.TokenProvider, options ...Option) *Client {
	c := &Client{
		Client: http.Client{Timeout: DefaultHTTPTimeout},
		tokens: tokens,
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

type Client struct {
	http.Client

	tokens auth.TokenProvider

	endpoint   *string
	apiVersion *string
	userAgent  *string
	logger     log.Logger

	rateLimitInfo RateLimitInfo
}

func (c *Client) BaseURL() (*url.URL, error) {
	return url.Parse(c.Endpoint())
}

func (c *Client) Endpoint() string {
	s := c.endpoint
	if s == nil {
		return DefaultEndpoint
	}
	return *s
}

func (c *Client) APIVersion() string {
	s := c.apiVersion
	if s == nil {
		return DefaultAPIVersion
	}
	return *s
}

func (c *Client) UserAgent() string {
	s := c.userAgent
	if s == nil {
		return DefaultUserAgent
	}
	return *s
}

func (c *Client) RateLimitInfo() RateLimitInfo {
	return c.rateLimitInfo
}

type apiVersionOptions struct {
	APIVersion string `url:"api-version"`
}

// QueryRequest is the POST body of a graph query call.
type QueryRequest struct {
	Query         string               `json:"query"`
	Subscriptions []string             `json:"subscriptions,omitempty"`
	Options       *QueryRequestOptions `json:"options,omitempty"`
}

type QueryRequestOptions struct {
	Top          int    `json:"$top,omitempty"`
	Skip         int    `json:"$skip,omitempty"`
	ResultFormat string `json:"resultFormat,omitempty"`
}

type queryResponse struct {
	TotalRecords int64         `json:"totalRecords"`
	Count        int64         `json:"count"`
	Data         []data.Record `json:"data"`
}

// Query runs one paged graph query: up to top records starting at offset
// skip. A single attempt, no retries; failures surface as typed errors.
func (c *Client) Query(ctx context.Context, query string, top, skip int) (*data.Page, error) {
	req := QueryRequest{
		Query: query,
		Options: &QueryRequestOptions{
			Top:          top,
			Skip:         skip,
			ResultFormat: resultFormat,
		},
	}

	res, err := c.Post(ctx, queryPath, req, apiVersionOptions{c.APIVersion()})
	if err != nil {
		return nil, err
	}

	var payload queryResponse
	if err := c.Deserialize(res, &payload); err != nil {
		return nil, err
	}

	return &data.Page{
		TotalRecords: payload.TotalRecords,
		Count:        payload.Count,
		Records:      payload.Data,
	}, nil
}

func (c *Client) Deserialize(res *http.Response, resource interface{}) error {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if err := res.Body.Close(); err != nil {
		return err
	}
	if err := json.Unmarshal(body, resource); err != nil {
		return NewResponseDecodingError(res, err, body)
	}
	return nil
}

func (c *Client) Post(ctx context.Context, path string, body, options interface{}) (*http.Response, error) {
	return c.CreateAndDo(ctx, http.MethodPost, path, body, options)
}

func (c *Client) CreateAndDo(ctx context.Context, method, path string, body, options interface{}) (*http.Response, error) {
	req, err := c.NewRequest(ctx, method, path, body, options)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func (c *Client) NewRequest(ctx context.Context, method, path string, body, options interface{}) (*http.Request, error) {
	baseURL, err := c.BaseURL()
	if err != nil {
		return nil, err
	}

	rel, err := url.Parse(path)
	if err != nil {
		return nil, err
	}

	u, err := appendQuery(baseURL.ResolveReference(rel), options)
	if err != nil {
		return nil, err
	}

	b, err := marshalBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), b)
	if err != nil {
		return nil, err
	}

	req.Header.Add(hContentType, mApplicationJSON)
	req.Header.Add(hAccept, mApplicationJSON)
	req.Header.Add(hUserAgent, c.UserAgent())

	if u.Host == baseURL.Host {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set(hAuthorization, "Bearer "+token)
	}

	return req, nil
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.logRequest(req)

	res, err := c.Client.Do(req)
	c.logResponse(res)
	if err != nil {
		return res, err
	}

	if err := c.rateLimitInfo.update(res); err != nil {
		c.Warnf("error updating rate limit info: %v", err)
	}

	if err := CheckResponseError(res); err != nil {
		return res, err
	}

	return res, nil
}

func (c *Client) logRequest(req *http.Request) {
	if req == nil {
		return
	}
	if req.URL != nil {
		c.Debugf("%s: %s", req.Method, req.URL)
	}
	c.logBody(&req.Body, "SENT: %s")
}

func (c *Client) logResponse(res *http.Response) {
	if res == nil {
		c.Debugf("nil response")
		return
	}
	c.Debugf("RECV %03d: %s", res.StatusCode, res.Status)
	c.logBody(&res.Body, "RESP: %s")
}

func (c *Client) logBody(body *io.ReadCloser, format string) {
	if body == nil {
		return
	}
	if *body == nil {
		return
	}
	data, _ := io.ReadAll(*body)
	_ = (*body).Close()
	if len(data) > 0 {
		c.Tracef(format, string(data))
	}
	*body = io.NopCloser(bytes.NewReader(data))
}

func appendQuery(u *url.URL, v interface{}) (*url.URL, error) {
	if v == nil {
		return u, nil
	}

	q, err := query.Values(v)
	if err != nil {
		var ok bool
		q, ok = v.(url.Values)
		if !ok {
			return nil, err
		}
	}

	for k, values := range u.Query() {
		for _, v := range values {
			q.Add(k, v)
		}
	}

	c := cloneURL(u)
	c.RawQuery = q.Encode()
	return c, nil
}

func marshalBody(v interface{}) (io.Reader, error) {
	if v == nil {
		return nil, nil
	}

	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(buf), nil
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		u := *u.User
		c.User = &u
	}
	return &c
}

func (c *Client) Logf(level log.Level, format string, v ...interface{}) {
	l := c.logger
	if l == nil {
		return
	}

	l.Logf(level, format, v...)
}

func (c *Client) Tracef(format string, v ...interface{}) { c.Logf(log.LevelTrace, format, v...) }
func (c *Client) Debugf(format string, v ...interface{}) { c.Logf(log.LevelDebug, format, v...) }
func (c *Client) Errorf(format string, v ...interface{}) { c.Logf(log.LevelError, format, v...) }
func (c *Client) Infof(format string, v ...interface{})  { c.Logf(log.LevelInfo, format, v...) }
func (c *Client) Warnf(format string, v ...interface{})  { c.Logf(log.LevelWarn, format, v...) }
