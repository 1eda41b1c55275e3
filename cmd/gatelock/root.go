package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gatelock/gatelock/internal/config"
	"github.com/gatelock/gatelock/internal/locker"
	"github.com/gatelock/gatelock/internal/store"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the gatelock CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatelock",
		Short: "Gatelock - gated-content unlock workflow tooling",
		Long: `Gatelock implements the gated-content unlock workflow: a session
state machine supervising a sandboxed offer-wall embed, with durable
unlock records and a bounded retry budget. This CLI is developer
tooling around the library: it simulates sessions and inspects the
unlock store.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewSimulateCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewResetCmd())

	return cmd
}

// openUnlockStore builds the configured unlock store. The returned closer
// is a no-op for backends with nothing to release.
func openUnlockStore(ctx context.Context, cfg *config.Config) (locker.UnlockStore, func() error, error) {
	switch cfg.Store.Backend {
	case "memory":
		return locker.NewMemoryUnlockStore(), func() error { return nil }, nil
	case "redis":
		s, err := store.NewRedisStoreFromURL(cfg.Store.RedisURL, cfg.Store.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRetryingStore(s), s.Close, nil
	case "postgres":
		s, err := store.OpenPostgres(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRetryingStore(s), s.Close, nil
	default:
		s, err := store.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRetryingStore(s), s.Close, nil
	}
}

// openInspector builds the configured store's operator view. The memory
// backend keeps nothing worth inspecting.
func openInspector(ctx context.Context, cfg *config.Config) (store.Inspector, func() error, error) {
	switch cfg.Store.Backend {
	case "redis":
		s, err := store.NewRedisStoreFromURL(cfg.Store.RedisURL, cfg.Store.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		s, err := store.OpenPostgres(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := store.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
}
