package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/toolhive-catalog-sync/internal/activation"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
)

// target identifies the repository a command acts on
type target struct {
	provider string
	owner    string
	domain   string
	repo     string
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("provider", models.ProviderGitHub, "Provider of the account (github, bitbucket, bitbucket_enterprise)")
	cmd.PersistentFlags().String("owner", "", "Owner of the configured account")
	cmd.PersistentFlags().String("domain", "", "Provider host, to disambiguate accounts")
	cmd.PersistentFlags().String("repo", "", "Repository full name (owner/name)")
	for _, name := range []string{"owner", "repo"} {
		if err := cmd.MarkPersistentFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func readTarget(cmd *cobra.Command) (target, error) {
	var t target
	var err error
	flags := cmd.Flags()
	if t.provider, err = flags.GetString("provider"); err != nil {
		return t, err
	}
	if t.owner, err = flags.GetString("owner"); err != nil {
		return t, err
	}
	if t.domain, err = flags.GetString("domain"); err != nil {
		return t, err
	}
	if t.repo, err = flags.GetString("repo"); err != nil {
		return t, err
	}
	return t, nil
}

// errDatabaseRequired is returned by activation commands run without a
// database: the repositories they act on are the ones sync stored there
var errDatabaseRequired = errors.New("activation commands require a database section in the configuration")

// activationEnv is the service and account a command runs with
type activationEnv struct {
	service  activation.Service
	account  *models.Account
	repo     string
	shutdown func()
}

// newActivationEnv builds the activation service from the configuration.
// shutdown releases the store and flushes telemetry.
func newActivationEnv(ctx context.Context, cmd *cobra.Command) (*activationEnv, error) {
	t, err := readTarget(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Database == nil {
		return nil, errDatabaseRequired
	}
	account, err := findAccount(cfg, t.provider, t.owner, t.domain)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return nil, err
	}
	shutdownTelemetry := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Telemetry shutdown failed", "error", err)
		}
	}

	svc, st, err := buildService(ctx, cfg, tel)
	if err != nil {
		shutdownTelemetry()
		return nil, err
	}

	return &activationEnv{
		service: svc,
		account: account,
		repo:    t.repo,
		shutdown: func() {
			st.Close()
			shutdownTelemetry()
		},
	}, nil
}

func buildService(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry) (activation.Service, store.Store, error) {
	metrics, err := telemetry.NewCatalogMetrics(tel.MeterProvider())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create catalog metrics: %w", err)
	}
	factory, err := newFactory(cfg)
	if err != nil {
		return nil, nil, err
	}
	reg, err := newRegistryClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	st, err := newStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc, err := activation.NewService(factory, st, reg,
		activation.WithMetrics(metrics),
		activation.WithTracer(tel.Tracer("github.com/stacklok/toolhive-catalog-sync/activation")),
	)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return svc, st, nil
}

func newActivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate a repository, branch or tag",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}
	addTargetFlags(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "branch NAME",
		Short: "Build the catalog entries of a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActivationEnv(cmd, func(ctx context.Context, env *activationEnv) error {
				result, err := env.service.ActivateBranch(ctx, env.account, env.repo, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), result)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "tag NAME",
		Short: "Build the catalog entries of a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActivationEnv(cmd, func(ctx context.Context, env *activationEnv) error {
				result, err := env.service.ActivateTag(ctx, env.account, env.repo, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), result)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "repository",
		Short: "Activate a repository and load its branches and tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withActivationEnv(cmd, func(ctx context.Context, env *activationEnv) error {
				record, err := env.service.ActivateRepository(ctx, env.account, env.repo)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), record)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Reload the branches and tags of a repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withActivationEnv(cmd, func(ctx context.Context, env *activationEnv) error {
				record, err := env.service.RefreshRefs(ctx, env.account, env.repo)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), record)
			})
		},
	})
	return cmd
}

func newDeactivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate a repository, branch or tag",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}
	addTargetFlags(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "branch NAME",
		Short: "Remove a branch from its catalog entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActivationEnv(cmd, func(ctx context.Context, env *activationEnv) error {
				record, err := env.service.DeactivateBranch(ctx, env.account, env.repo, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), record)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "tag NAME",
		Short: "Remove a tag from its catalog entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActivationEnv(cmd, func(ctx context.Context, env *activationEnv) error {
				record, err := env.service.DeactivateTag(ctx, env.account, env.repo, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), record)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "repository",
		Short: "Deactivate a repository and remove its catalog entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withActivationEnv(cmd, func(ctx context.Context, env *activationEnv) error {
				record, err := env.service.DeactivateRepository(ctx, env.account, env.repo)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), record)
			})
		},
	})
	return cmd
}

func withActivationEnv(cmd *cobra.Command, fn func(context.Context, *activationEnv) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := newActivationEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.shutdown()
	return fn(ctx, env)
}

// resultView is the printed summary of an activation
type resultView struct {
	Repository string       `json:"repository"`
	Kind       string       `json:"kind"`
	Ref        *models.Ref  `json:"ref"`
	Synthetic  bool         `json:"synthetic,omitempty"`
	Folders    []folderView `json:"folders"`
}

type folderView struct {
	Folder string `json:"folder,omitempty"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type,omitempty"`
	Error  string `json:"error,omitempty"`
}

func printResult(w io.Writer, result *activation.Result) error {
	view := resultView{
		Repository: result.Repository.Repository,
		Kind:       result.Kind,
		Ref:        result.Ref,
		Synthetic:  result.Synthetic,
		Folders:    make([]folderView, 0, len(result.Folders)),
	}
	for _, f := range result.Folders {
		fv := folderView{Folder: f.Folder}
		if f.Entry != nil {
			fv.Name = f.Entry.Name
			fv.Type = f.Entry.Type
		}
		if f.Err != nil {
			fv.Error = f.Err.Error()
		}
		view.Folders = append(view.Folders, fv)
	}
	return printJSON(w, view)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
