package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultAuthority = "https://login.microsoftonline.com"
	DefaultScope     = "https://management.azure.com/.default"

	tokenPath = "oauth2/v2.0/token"
)

// ClientCredentials is a service-principal session using the OAuth2
// client-credentials grant.
type ClientCredentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	Authority string
	Scope     string
	HTTP      *http.Client

	token   string
	expires time.Time
}

func (c *ClientCredentials) authority() string {
	if c.Authority == "" {
		return DefaultAuthority
	}
	return strings.TrimRight(c.Authority, "/")
}

func (c *ClientCredentials) scope() string {
	if c.Scope == "" {
		return DefaultScope
	}
	return c.Scope
}

func (c *ClientCredentials) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *ClientCredentials) Active(context.Context) bool {
	return c.token != "" && time.Now().Add(expirySlack).Before(c.expires)
}

func (c *ClientCredentials) Login(ctx context.Context) error {
	_, err := c.fetch(ctx)
	return err
}

func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	if c.Active(ctx) {
		return c.token, nil
	}
	return c.fetch(ctx)
}

func (c *ClientCredentials) fetch(ctx context.Context) (string, error) {
	if c.TenantID == "" || c.ClientID == "" || c.ClientSecret == "" {
		return "", errors.New("tenant id, client id, and client secret are all required")
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"scope":         {c.scope()},
	}

	endpoint := c.authority() + "/" + c.TenantID + "/" + tokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient().Do(req)
	if err != nil {
		return "", errors.Wrap(err, "requesting token")
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if err := res.Body.Close(); err != nil {
		return "", err
	}

	var payload struct {
		AccessToken      string `json:"access_token"`
		ExpiresIn        int64  `json:"expires_in"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.Wrapf(err, "decoding token response (status %d)", res.StatusCode)
	}

	if res.StatusCode != http.StatusOK {
		msg := payload.ErrorDescription
		if msg == "" {
			msg = payload.Error
		}
		if msg == "" {
			msg = res.Status
		}
		return "", errors.Errorf("token request failed: %s", msg)
	}

	if payload.AccessToken == "" {
		return "", errors.New("token response carried no access token")
	}

	c.token = payload.AccessToken
	c.expires = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return c.token, nil
}
