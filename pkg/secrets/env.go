package secrets

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

type Env struct{}

func (Env) Resolve(_ context.Context, name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", errors.Errorf("no secret in environment variable %s", name)
	}

	return v, nil
}
