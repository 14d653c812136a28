package secrets

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

type Resolver interface {
	Resolve(ctx context.Context, path string) (string, error)
}

// Mux routes secret paths to resolvers by scheme, e.g. env://ARG_CLIENT_SECRET
// or ssm:///prod/argexport/client-secret.
type Mux map[string]Resolver

func (m Mux) Resolve(ctx context.Context, path string) (string, error) {
	scheme, rest, ok := strings.Cut(path, "://")
	if !ok {
		return "", errors.Errorf("secret path %q has no scheme", path)
	}

	r := m[scheme]
	if r == nil {
		return "", errors.Errorf("no resolver registered for secret scheme %q", scheme)
	}

	return r.Resolve(ctx, rest)
}
