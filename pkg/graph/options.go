package graph

import (
	"time"

	"github.com/cloudinv/argexport/pkg/log"
)

type Option func(c *Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = &endpoint
	}
}

func WithAPIVersion(apiVersion string) Option {
	return func(c *Client) {
		c.apiVersion = &apiVersion
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = &userAgent
	}
}

func WithHTTPTimeout(httpTimeout time.Duration) Option {
	return func(c *Client) {
		c.Timeout = httpTimeout
	}
}

func WithLogger(logger log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
