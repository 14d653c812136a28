package auth

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultResource = "https://management.azure.com/"

	// az prints expiresOn in local time without a zone.
	cliExpiresOnFormat = "2006-01-02 15:04:05.999999"

	expirySlack = time.Minute
)

// CLISession drives the `az` command line client. Tokens are cached until
// shortly before their expiry.
type CLISession struct {
	Resource string

	// Runner overrides command execution; used by tests.
	Runner func(ctx context.Context, args ...string) ([]byte, error)

	token   string
	expires time.Time
}

func (s *CLISession) resource() string {
	if s.Resource == "" {
		return DefaultResource
	}
	return s.Resource
}

func (s *CLISession) run(ctx context.Context, args ...string) ([]byte, error) {
	if s.Runner != nil {
		return s.Runner(ctx, args...)
	}

	cmd := exec.CommandContext(ctx, "az", args...)
	cmd.Stderr = os.Stderr
	return cmd.Output()
}

func (s *CLISession) Active(ctx context.Context) bool {
	_, err := s.run(ctx, "account", "show", "--output", "none")
	return err == nil
}

func (s *CLISession) Login(ctx context.Context) error {
	_, err := s.run(ctx, "login", "--output", "none")
	return errors.Wrap(err, "interactive login failed")
}

func (s *CLISession) Token(ctx context.Context) (string, error) {
	if s.token != "" && time.Now().Add(expirySlack).Before(s.expires) {
		return s.token, nil
	}

	out, err := s.run(ctx, "account", "get-access-token", "--resource", s.resource(), "--output", "json")
	if err != nil {
		return "", errors.Wrap(err, "acquiring access token")
	}

	var payload struct {
		AccessToken string `json:"accessToken"`
		ExpiresOn   string `json:"expiresOn"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return "", errors.Wrap(err, "decoding access token")
	}
	if payload.AccessToken == "" {
		return "", errors.New("az returned an empty access token")
	}

	s.token = payload.AccessToken
	if t, err := time.ParseInLocation(cliExpiresOnFormat, payload.ExpiresOn, time.Local); err == nil {
		s.expires = t
	} else {
		s.expires = time.Now().Add(5 * time.Minute)
	}

	return s.token, nil
}
