// Package config provides configuration loading and management for the catalog sync service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-catalog-sync/internal/filtering"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
)

const (
	// EnvPrefix is the prefix of every environment variable read by the service
	EnvPrefix = "THV_CATALOG"

	// DefaultConcurrency is the number of accounts ingested in parallel
	DefaultConcurrency = 4

	// DatabasePasswordEnv holds the database password when no file is configured
	DatabasePasswordEnv = "THV_CATALOG_DATABASE_PASSWORD"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks; this also cleans the path.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Accounts  []AccountConfig           `yaml:"accounts"`
	Providers map[string]ProviderConfig `yaml:"providers,omitempty"`
	Registry  *RegistryConfig           `yaml:"registry,omitempty"`
	Database  *DatabaseConfig           `yaml:"database,omitempty"`
	Sync      *SyncConfig               `yaml:"sync,omitempty"`
	Telemetry *telemetry.Config         `yaml:"telemetry,omitempty"`
}

// AccountConfig declares one credentialed account. Secrets are read from
// files or environment variables, never from the YAML itself.
type AccountConfig struct {
	// Provider is one of github, bitbucket or bitbucket_enterprise
	Provider string `yaml:"provider"`

	// Owner is the account namespace (user, workspace or project owner)
	Owner string `yaml:"owner"`

	// Access is public or private, defaults to private
	Access string `yaml:"access,omitempty"`

	// Domain is the provider host; required for bitbucket_enterprise
	Domain string `yaml:"domain,omitempty"`

	TokenFile        string `yaml:"tokenFile,omitempty"`
	TokenEnv         string `yaml:"tokenEnv,omitempty"`
	RefreshTokenFile string `yaml:"refreshTokenFile,omitempty"`
	Username         string `yaml:"username,omitempty"`
	PasswordFile     string `yaml:"passwordFile,omitempty"`

	Filter *models.Filter `yaml:"filter,omitempty"`
}

// ProviderConfig tunes the client of one provider
type ProviderConfig struct {
	BaseURL           string  `yaml:"baseURL,omitempty"`
	Timeout           string  `yaml:"timeout,omitempty"`
	PageSize          int     `yaml:"pageSize,omitempty"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`

	// OAuth enables access token refresh (bitbucket only)
	OAuth *OAuthConfig `yaml:"oauth,omitempty"`
}

// GetTimeout returns the parsed timeout or zero when unset
func (p ProviderConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(p.Timeout)
	return d
}

// OAuthConfig holds the OAuth consumer used for refresh token grants
type OAuthConfig struct {
	ClientID         string `yaml:"clientID"`
	ClientSecretFile string `yaml:"clientSecretFile"`
	TokenURL         string `yaml:"tokenURL,omitempty"`
}

// GetClientSecret reads the client secret file
func (o *OAuthConfig) GetClientSecret() (string, error) {
	return readSecret(o.ClientSecretFile, "")
}

// RegistryConfig points at the catalog registry service. Without an endpoint
// catalogs are kept in memory.
type RegistryConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
	TokenFile string `yaml:"tokenFile,omitempty"`
}

// GetTimeout returns the parsed timeout or zero when unset
func (r *RegistryConfig) GetTimeout() time.Duration {
	if r == nil {
		return 0
	}
	d, _ := time.ParseDuration(r.Timeout)
	return d
}

// GetToken reads the registry token file, if any
func (r *RegistryConfig) GetToken() (string, error) {
	if r == nil || r.TokenFile == "" {
		return "", nil
	}
	return readSecret(r.TokenFile, "")
}

// SyncConfig controls ingestion passes
type SyncConfig struct {
	// Concurrency bounds the number of accounts ingested at once
	Concurrency int `yaml:"concurrency,omitempty"`
}

// DatabaseConfig defines database connection settings. Without it the
// repository store is kept in memory.
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`

	// DynamicAuth replaces the static password with short-lived tokens
	DynamicAuth *DynamicAuthConfig `yaml:"dynamicAuth,omitempty"`
}

// DynamicAuthConfig selects a token based authentication method
type DynamicAuthConfig struct {
	AWSRDSIAM *AWSRDSIAMConfig `yaml:"awsRdsIam,omitempty"`
}

// AWSRDSIAMConfig enables AWS RDS IAM authentication
type AWSRDSIAMConfig struct {
	// Region is the AWS region of the database, or "detect" to read it from
	// the instance metadata service
	Region string `yaml:"region"`
}

// GetPassword returns the database password from PasswordFile, falling back
// to the THV_CATALOG_DATABASE_PASSWORD environment variable.
func (d *DatabaseConfig) GetPassword() (string, error) {
	password, err := readSecret(d.PasswordFile, DatabasePasswordEnv)
	if err != nil {
		return "", fmt.Errorf("no database password configured: %w", err)
	}
	return password, nil
}

// GetConnectionString builds a PostgreSQL connection string. The password is
// URL-escaped. With dynamic auth the password is left out and supplied per
// connection.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	if d.DynamicAuth != nil {
		return d.ConnectionStringWithPassword(""), nil
	}
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}
	return d.ConnectionStringWithPassword(password), nil
}

// ConnectionStringWithPassword builds the connection string with password,
// omitting it when empty
func (d *DatabaseConfig) ConnectionStringWithPassword(password string) string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	userInfo := url.QueryEscape(d.User)
	if password != "" {
		userInfo += ":" + url.QueryEscape(password)
	}

	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s?sslmode=%s",
		userInfo,
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetConcurrency returns the account worker count
func (c *Config) GetConcurrency() int {
	if c.Sync == nil || c.Sync.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return c.Sync.Concurrency
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account must be configured")
	}

	seen := make(map[string]bool)
	for i := range c.Accounts {
		acc := &c.Accounts[i]
		prefix := fmt.Sprintf("accounts[%d] (%s)", i, acc.Owner)
		if err := acc.validate(prefix); err != nil {
			return err
		}
		key := acc.Provider + "/" + acc.Domain + "/" + acc.Owner
		if seen[key] {
			return fmt.Errorf("%s: duplicate account for provider %s", prefix, acc.Provider)
		}
		seen[key] = true
	}

	for name, p := range c.Providers {
		if !isKnownProvider(name) {
			return fmt.Errorf("providers: unknown provider %q", name)
		}
		if p.Timeout != "" {
			if _, err := time.ParseDuration(p.Timeout); err != nil {
				return fmt.Errorf("providers.%s: timeout must be a valid duration: %w", name, err)
			}
		}
		if p.OAuth != nil && name != models.ProviderBitbucket {
			return fmt.Errorf("providers.%s: oauth is only supported for %s", name, models.ProviderBitbucket)
		}
	}

	if c.Registry != nil {
		if c.Registry.Endpoint != "" {
			if _, err := url.ParseRequestURI(c.Registry.Endpoint); err != nil {
				return fmt.Errorf("registry.endpoint is not a valid URL: %w", err)
			}
		}
		if c.Registry.Timeout != "" {
			if _, err := time.ParseDuration(c.Registry.Timeout); err != nil {
				return fmt.Errorf("registry.timeout must be a valid duration: %w", err)
			}
		}
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	if c.Database != nil && c.Database.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Database.ConnMaxLifetime); err != nil {
			return fmt.Errorf("database.connMaxLifetime must be a valid duration: %w", err)
		}
	}
	if c.Database != nil && c.Database.DynamicAuth != nil {
		if c.Database.DynamicAuth.AWSRDSIAM == nil {
			return fmt.Errorf("database.dynamicAuth: no supported auth method (awsRdsIam) is specified")
		}
		if c.Database.DynamicAuth.AWSRDSIAM.Region == "" {
			return fmt.Errorf("database.dynamicAuth.awsRdsIam.region is required")
		}
	}

	return nil
}

func (a *AccountConfig) validate(prefix string) error {
	if !isKnownProvider(a.Provider) {
		return fmt.Errorf("%s: provider must be one of %s, %s or %s, got %q", prefix,
			models.ProviderGitHub, models.ProviderBitbucket, models.ProviderBitbucketEnterprise, a.Provider)
	}
	if a.Owner == "" {
		return fmt.Errorf("%s: owner is required", prefix)
	}
	if a.Access != "" && a.Access != models.AccessPublic && a.Access != models.AccessPrivate {
		return fmt.Errorf("%s: access must be %s or %s", prefix, models.AccessPublic, models.AccessPrivate)
	}
	if a.Provider == models.ProviderBitbucketEnterprise && a.Domain == "" {
		return fmt.Errorf("%s: domain is required for %s", prefix, models.ProviderBitbucketEnterprise)
	}
	if a.Filter != nil {
		if a.Filter.Type != models.FilterWhitelist && a.Filter.Type != models.FilterBlacklist {
			return fmt.Errorf("%s: filter.type must be %s or %s", prefix, models.FilterWhitelist, models.FilterBlacklist)
		}
		if err := filtering.ValidatePatterns(a.Filter.Value); err != nil {
			return fmt.Errorf("%s: filter.value: %w", prefix, err)
		}
	}
	return nil
}

// ToAccount resolves the account secrets into a models.Account
func (a *AccountConfig) ToAccount() (*models.Account, error) {
	access := a.Access
	if access == "" {
		access = models.AccessPrivate
	}
	account := &models.Account{
		Provider:    a.Provider,
		Owner:       a.Owner,
		AccessLevel: access,
		Domain:      a.Domain,
		Username:    a.Username,
		Filter:      a.Filter,
	}

	if a.TokenFile != "" || a.TokenEnv != "" {
		token, err := readSecret(a.TokenFile, a.TokenEnv)
		if err != nil {
			return nil, fmt.Errorf("account %s: token: %w", a.Owner, err)
		}
		account.Token = token
	}
	if a.RefreshTokenFile != "" {
		refresh, err := readSecret(a.RefreshTokenFile, "")
		if err != nil {
			return nil, fmt.Errorf("account %s: refresh token: %w", a.Owner, err)
		}
		account.RefreshToken = refresh
	}
	if a.PasswordFile != "" {
		password, err := readSecret(a.PasswordFile, "")
		if err != nil {
			return nil, fmt.Errorf("account %s: password: %w", a.Owner, err)
		}
		account.Password = password
	}
	return account, nil
}

func isKnownProvider(name string) bool {
	switch name {
	case models.ProviderGitHub, models.ProviderBitbucket, models.ProviderBitbucketEnterprise:
		return true
	}
	return false
}

// readSecret reads a trimmed secret from file, falling back to the env variable
func readSecret(file, env string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(filepath.Clean(file))
		if err != nil {
			return "", fmt.Errorf("failed to read secret from file %s: %w", file, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if env != "" {
		if v := os.Getenv(env); v != "" {
			return v, nil
		}
		return "", fmt.Errorf("environment variable %s is not set", env)
	}
	return "", fmt.Errorf("no secret source configured")
}
