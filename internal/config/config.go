// Package config assembles the immutable process configuration: parsed
// from the environment, optionally overlaid by a YAML file, validated
// once at startup. Nothing here is re-read per request.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/clinvol/identity-service/internal/identity"
)

// Provider holds the identity-provider connection parameters.
type Provider struct {
	Region          string `env:"AWS_REGION" yaml:"region"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" yaml:"access_key_id"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" yaml:"secret_access_key"`
	UserPoolID      string `env:"COGNITO_USER_POOL_ID" yaml:"user_pool_id"`
	ClientID        string `env:"COGNITO_CLIENT_ID" yaml:"client_id"`
	ClientSecret    string `env:"COGNITO_CLIENT_SECRET" yaml:"client_secret"`
}

// Config is the full service configuration.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080" yaml:"port"`
	DBPath string `env:"DB_PATH" envDefault:"identity.db" yaml:"db_path"`

	Provider Provider `yaml:"provider"`
}

// Load parses the environment and, when path names an existing file,
// overlays the YAML values on top. Fields absent from the file keep
// their environment values.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrConfiguration, err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", identity.ErrConfiguration, path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", identity.ErrConfiguration, path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	required := map[string]string{
		"region":            c.Provider.Region,
		"user pool id":      c.Provider.UserPoolID,
		"app client id":     c.Provider.ClientID,
		"app client secret": c.Provider.ClientSecret,
	}
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing %s", identity.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// Issuer is the provider's token issuer URL for this pool.
func (p Provider) Issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", p.Region, p.UserPoolID)
}

// JWKSURL is where the pool publishes its token signing keys.
func (p Provider) JWKSURL() string {
	return p.Issuer() + "/.well-known/jwks.json"
}
