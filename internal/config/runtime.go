package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cloudinv/argexport/pkg/auth"
	"github.com/cloudinv/argexport/pkg/secrets"
)

const (
	DefaultPageSize      = 1000
	DefaultMaxIterations = 1000
	DefaultMaxDepth      = 10
	DefaultOutputRoot    = "arg-output"

	outputTimestampFormat = "20060102-150405"
)

// Auth carries service-principal credentials. When absent the run falls
// back to the az CLI session.
type Auth struct {
	TenantID     string         `yaml:"tenant_id"`
	ClientID     secrets.Secret `yaml:"client_id"`
	ClientSecret secrets.Secret `yaml:"client_secret"`
}

func (a *Auth) Configured() bool {
	return a != nil && a.TenantID != ""
}

type Runtime struct {
	ResourceTypes   []string      `yaml:"types"`
	OutputDirectory string        `yaml:"output"`
	SubscriptionID  string        `yaml:"subscription"`
	PageSize        int           `yaml:"page_size"`
	MaxIterations   int           `yaml:"max_iterations"`
	MaxDepth        int           `yaml:"max_depth"`
	APIVersion      string        `yaml:"api_version"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	UserAgent       string        `yaml:"user_agent"`
	Verbose         bool          `yaml:"verbose"`
	Auth            *Auth         `yaml:"auth"`
}

func (r *Runtime) LoadFile(path string) error {
	fp, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = fp.Close() }()

	dec := yaml.NewDecoder(fp)
	if err := dec.Decode(r); err != nil {
		return errors.Wrapf(err, "decoding config file %s", path)
	}
	return nil
}

func (r *Runtime) ApplyDefaults(now time.Time) {
	if r.PageSize <= 0 {
		r.PageSize = DefaultPageSize
	}
	if r.MaxIterations <= 0 {
		r.MaxIterations = DefaultMaxIterations
	}
	if r.MaxDepth <= 0 {
		r.MaxDepth = DefaultMaxDepth
	}
	if r.OutputDirectory == "" {
		r.OutputDirectory = filepath.Join(DefaultOutputRoot, now.Format(outputTimestampFormat))
	}
}

func (r *Runtime) Validate() error {
	if len(r.Types()) == 0 {
		return errors.New("at least one resource type is required")
	}
	return nil
}

// Types returns the requested resource types deduplicated case-insensitively,
// first spelling and first occurrence order preserved.
func (r *Runtime) Types() []string {
	seen := linkedhashset.New()
	spelling := make(map[string]string)

	for _, t := range r.ResourceTypes {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if !seen.Contains(key) {
			seen.Add(key)
			spelling[key] = t
		}
	}

	out := make([]string, 0, seen.Size())
	seen.Each(func(_ int, v interface{}) {
		out = append(out, spelling[v.(string)])
	})
	return out
}

func (r *Runtime) ResolveSecrets(ctx context.Context, resolver secrets.Resolver) error {
	if r.Auth == nil {
		return nil
	}

	if _, err := r.Auth.ClientID.Resolve(ctx, resolver); err != nil {
		return errors.Wrap(err, "resolving client id")
	}
	if _, err := r.Auth.ClientSecret.Resolve(ctx, resolver); err != nil {
		return errors.Wrap(err, "resolving client secret")
	}
	return nil
}

// Session builds the credential object for the run: a service principal when
// auth is configured, the az CLI otherwise.
func (r *Runtime) Session() auth.Session {
	if r.Auth.Configured() {
		return &auth.ClientCredentials{
			TenantID:     r.Auth.TenantID,
			ClientID:     r.Auth.ClientID.Value,
			ClientSecret: r.Auth.ClientSecret.Value,
		}
	}

	return &auth.CLISession{}
}
