package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/balance"
	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/gitops"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/logging"
	"github.com/cleared-dev/ledger/internal/store"
	"github.com/cleared-dev/ledger/internal/store/csvstore"
	"github.com/cleared-dev/ledger/internal/store/sqlstore"
)

// runtime is everything a command needs for one project.
type runtime struct {
	root     string
	cfg      *config.Config
	log      *logrus.Logger
	store    store.Store
	accounts *accounts.Service
	journal  *journal.Service
	balance  *balance.Engine
	closers  []func() error
}

func openRuntime(ctx context.Context, root string, logOut io.Writer) (*runtime, error) {
	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no %s in %s; run 'ledger init' first", config.FileName, root)
		}
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", config.FileName, err)
	}

	log, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	rt := &runtime{root: root, cfg: cfg, log: log}

	switch cfg.Storage.Driver {
	case config.DriverCSV:
		s, err := csvstore.Open(filepath.Join(root, cfg.Storage.Dir), log)
		if err != nil {
			return nil, err
		}
		rt.store = s
	default:
		s, err := sqlstore.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, log)
		if err != nil {
			return nil, err
		}
		rt.store = s
	}
	rt.closers = append(rt.closers, rt.store.Close)

	var opts []balance.Option
	switch cfg.Cache.Backend {
	case config.CacheMemory:
		opts = append(opts, balance.WithCache(balance.NewMemoryCache()))
	case config.CacheRedis:
		client, err := balance.DialRedis(ctx, cfg.Cache.Address)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		opts = append(opts, balance.WithCache(balance.NewRedisCache(client, cfg.Cache.Prefix)))
	}

	rt.balance = balance.NewEngine(rt.store, log, opts...)
	rt.journal = journal.NewService(rt.store, log, journal.WithInvalidator(rt.balance))
	rt.accounts = accounts.NewService(rt.store, log)
	return rt, nil
}

func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	return errors.Join(errs...)
}

// commit records the command's changes in git when the ledger is kept as CSV
// inside a repository with auto-commit enabled.
func (rt *runtime) commit(ctx context.Context, message string) error {
	if rt.cfg.Storage.Driver != config.DriverCSV || !rt.cfg.Git.AutoCommit || !gitops.IsRepo(rt.root) {
		return nil
	}
	changed, err := gitops.HasChanges(ctx, rt.root)
	if err != nil || !changed {
		return err
	}
	hash, err := gitops.CommitAll(ctx, rt.root, message, rt.cfg.Git.AuthorName, rt.cfg.Git.AuthorEmail)
	if err != nil {
		return err
	}
	rt.log.WithFields(logrus.Fields{"commit": hash, "message": message}).Debug("committed")
	return nil
}

// run opens the project named by --dir, calls fn and closes the project.
func run(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := openRuntime(ctx, root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}
