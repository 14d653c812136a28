package secrets_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cloudinv/argexport/pkg/secrets"
)

func TestSecretUnmarshalLiteral(t *testing.T) {
	var s secrets.Secret
	require.NoError(t, yaml.Unmarshal([]byte(`plain-value`), &s))
	require.Equal(t, "", s.Path)
	require.Equal(t, "plain-value", s.Value)

	v, err := s.Resolve(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "plain-value", v)
}

func TestSecretUnmarshalTagged(t *testing.T) {
	t.Setenv("SECRET_TEST_VALUE", "resolved")

	var s secrets.Secret
	require.NoError(t, yaml.Unmarshal([]byte(`!secret env://SECRET_TEST_VALUE`), &s))
	require.Equal(t, "env://SECRET_TEST_VALUE", s.Path)
	require.Equal(t, "", s.Value)

	v, err := s.Resolve(context.Background(), secrets.Mux{"env": secrets.Env{}})
	require.NoError(t, err)
	require.Equal(t, "resolved", v)

	// Resolved value is cached on the secret.
	require.Equal(t, "resolved", s.Value)
}

func TestMuxUnknownScheme(t *testing.T) {
	m := secrets.Mux{"env": secrets.Env{}}

	_, err := m.Resolve(context.Background(), "vault://path")
	require.Error(t, err)

	_, err = m.Resolve(context.Background(), "no-scheme")
	require.Error(t, err)
}

func TestEnvResolverMissing(t *testing.T) {
	_, err := secrets.Env{}.Resolve(context.Background(), "ARGEXPORT_DEFINITELY_UNSET")
	require.Error(t, err)
}
