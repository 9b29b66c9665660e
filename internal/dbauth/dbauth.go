// Package dbauth supplies short-lived database credentials for the
// repository store.
package dbauth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
)

// NewAuthToken returns a token usable as the password of user, or an empty
// string when dynamic authentication is not configured. It suits short-lived
// connections such as migrations where no BeforeConnect hook exists.
func NewAuthToken(ctx context.Context, cfg *config.DatabaseConfig, user string) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("database configuration is required")
	}
	if cfg.DynamicAuth == nil {
		return "", nil
	}
	if cfg.DynamicAuth.AWSRDSIAM != nil {
		region, err := awsRegion(ctx, cfg)
		if err != nil {
			return "", err
		}
		return awsToken(ctx, cfg, region, user)
	}
	return "", errNoMethod
}

// BeforeConnect returns a pgx hook that sets a fresh token as the password
// of every new pool connection
func BeforeConnect(ctx context.Context, cfg *config.DatabaseConfig) (func(context.Context, *pgx.ConnConfig) error, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}
	if cfg.DynamicAuth == nil {
		return nil, fmt.Errorf("dynamic authentication is not configured")
	}
	if cfg.DynamicAuth.AWSRDSIAM == nil {
		return nil, errNoMethod
	}

	region, err := awsRegion(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, connConfig *pgx.ConnConfig) error {
		token, err := awsToken(ctx, cfg, region, connConfig.User)
		if err != nil {
			return err
		}
		connConfig.Password = token
		return nil
	}, nil
}

// ConnectionString returns the connection string of cfg with a freshly
// resolved token embedded, for clients that open their own connections
func ConnectionString(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("database configuration is required")
	}
	if cfg.DynamicAuth == nil {
		return cfg.GetConnectionString()
	}
	token, err := NewAuthToken(ctx, cfg, cfg.User)
	if err != nil {
		return "", fmt.Errorf("failed to resolve database auth token: %w", err)
	}
	return cfg.ConnectionStringWithPassword(token), nil
}

var errNoMethod = fmt.Errorf("dynamic auth is configured but no supported auth method (awsRdsIam) is specified")
