package secrets

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Secret is a YAML value that is either a literal string or a `!secret path`
// reference resolved lazily through a Resolver.
type Secret struct {
	Path  string
	Value string
}

func (s *Secret) UnmarshalYAML(node *yaml.Node) error {
	*s = Secret{}

	if node.Tag == "!secret" {
		return node.Decode(&s.Path)
	}

	return node.Decode(&s.Value)
}

func (s Secret) String() string {
	if s.Path == "" {
		return s.Value
	}

	return fmt.Sprintf("!secret %s", s.Path)
}

func (s *Secret) Resolve(ctx context.Context, resolver Resolver) (string, error) {
	var err error

	if s.Path == "" {
		return s.Value, err
	}

	if s.Value == "" {
		s.Value, err = resolver.Resolve(ctx, s.Path)
	}

	return s.Value, err
}
