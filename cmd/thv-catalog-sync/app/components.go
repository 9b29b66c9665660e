package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/dbauth"
	"github.com/stacklok/toolhive-catalog-sync/internal/httpclient"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
	"github.com/stacklok/toolhive-catalog-sync/internal/providers"
	"github.com/stacklok/toolhive-catalog-sync/internal/registry"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
)

const (
	// storeInitAttempts bounds the startup wait for the database
	storeInitAttempts = 5

	// shutdownTimeout bounds telemetry flushing on exit
	shutdownTimeout = 10 * time.Second
)

// loadConfig reads the file named by --config or THV_CATALOG_CONFIG
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path == "" {
		path = viper.GetString("config")
	}
	if path == "" {
		return nil, errors.New("a configuration file is required (--config)")
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Debug("Configuration loaded", "path", path, "accounts", len(cfg.Accounts))
	return cfg, nil
}

// newStore opens the configured store and initializes it. The database is
// retried with exponential backoff so the service can start before it.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Database == nil {
		slog.Warn("No database configured, repositories are kept in memory")
		return store.NewMemoryStore(), nil
	}

	connString, err := cfg.Database.GetConnectionString()
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxOpenConns
	}
	if cfg.Database.ConnMaxLifetime != "" {
		lifetime, err := time.ParseDuration(cfg.Database.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("invalid database.connMaxLifetime: %w", err)
		}
		poolCfg.MaxConnLifetime = lifetime
	}

	if cfg.Database.DynamicAuth != nil {
		hook, err := dbauth.BeforeConnect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to configure database auth: %w", err)
		}
		poolCfg.BeforeConnect = hook

		// migrations open their own connection
		if connString, err = dbauth.ConnectionString(ctx, cfg.Database); err != nil {
			return nil, err
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	st := store.NewPostgresStoreFromPool(pool, connString)

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		err := st.Init(ctx)
		if err != nil {
			slog.Warn("Database not ready", "host", cfg.Database.Host, "error", err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(storeInitAttempts))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}

// factoryOptions maps the providers section onto adapter options
func factoryOptions(cfg *config.Config) (map[string]providers.Options, error) {
	out := make(map[string]providers.Options, len(cfg.Providers))
	for name, p := range cfg.Providers {
		opts := providers.Options{
			BaseURL:           p.BaseURL,
			Timeout:           p.GetTimeout(),
			PageSize:          p.PageSize,
			RequestsPerSecond: p.RequestsPerSecond,
			Burst:             p.Burst,
		}
		if p.OAuth != nil {
			secret, err := p.OAuth.GetClientSecret()
			if err != nil {
				return nil, fmt.Errorf("providers.%s.oauth: %w", name, err)
			}
			opts.Refresher = providers.NewBitbucketRefresher(p.OAuth.ClientID, secret, p.OAuth.TokenURL)
		}
		out[name] = opts
	}
	return out, nil
}

func newFactory(cfg *config.Config) (*providers.DefaultFactory, error) {
	opts, err := factoryOptions(cfg)
	if err != nil {
		return nil, err
	}
	return providers.NewFactory(opts), nil
}

// newRegistryClient returns the HTTP registry client, or an in-memory one
// when no endpoint is configured
func newRegistryClient(cfg *config.Config) (registry.Client, error) {
	if cfg.Registry == nil || cfg.Registry.Endpoint == "" {
		slog.Warn("No registry endpoint configured, catalogs are kept in memory")
		return registry.NewMemoryClient(), nil
	}

	token, err := cfg.Registry.GetToken()
	if err != nil {
		return nil, fmt.Errorf("registry token: %w", err)
	}
	client := httpclient.NewDefaultClient(cfg.Registry.GetTimeout(),
		httpclient.WithAuth(httpclient.BearerToken{Token: token}))
	return registry.NewHTTPClient(client, cfg.Registry.Endpoint)
}

// loadAccounts resolves the secrets of every configured account
func loadAccounts(cfg *config.Config) ([]*models.Account, error) {
	accounts := make([]*models.Account, 0, len(cfg.Accounts))
	for i := range cfg.Accounts {
		account, err := cfg.Accounts[i].ToAccount()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// findAccount returns the configured account of provider and owner. domain
// narrows the match when several hosts share an owner name.
func findAccount(cfg *config.Config, provider, owner, domain string) (*models.Account, error) {
	var match *config.AccountConfig
	for i := range cfg.Accounts {
		acc := &cfg.Accounts[i]
		if acc.Provider != provider || acc.Owner != owner {
			continue
		}
		if domain != "" && acc.Domain != domain {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("several %s accounts named %s are configured, set --domain", provider, owner)
		}
		match = acc
	}
	if match == nil {
		return nil, fmt.Errorf("no %s account named %s is configured", provider, owner)
	}
	return match.ToAccount()
}
