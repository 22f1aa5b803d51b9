// Package csvstore keeps the ledger in plain CSV files under a project
// directory, suitable for committing to git. Reads are served from memory;
// each commit rewrites the files it changed.
package csvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/store"
	"github.com/cleared-dev/ledger/internal/store/memstore"
)

// File locations relative to the project directory.
var (
	HeadersPath  = filepath.Join("accounts", "headers.csv")
	AccountsPath = filepath.Join("accounts", "chart-of-accounts.csv")
	JournalPath  = filepath.Join("journal", "journal.csv")
)

// Store is a store.Store persisted as CSV files.
type Store struct {
	*memstore.Store
	dir string
	log logrus.FieldLogger

	// output wraps each temp file before a CSV is written to it.
	output func(io.Writer) io.Writer
}

var _ store.Store = (*Store)(nil)

// Open loads the ledger under dir. Missing files are treated as empty.
func Open(dir string, log logrus.FieldLogger) (*Store, error) {
	var data memstore.Data
	var err error

	if data.Headers, err = readFile(filepath.Join(dir, HeadersPath), accounts.ReadHeaders); err != nil {
		return nil, err
	}
	if data.Accounts, err = readFile(filepath.Join(dir, AccountsPath), accounts.ReadAccounts); err != nil {
		return nil, err
	}
	if data.Entries, err = readFile(filepath.Join(dir, JournalPath), journal.ReadEntries); err != nil {
		return nil, err
	}

	s := &Store{dir: dir, log: log.WithField("component", "csvstore")}
	mem, err := memstore.NewFromData(data, memstore.WithCommitHook(s.persist))
	if err != nil {
		return nil, fmt.Errorf("loading ledger from %s: %w", dir, err)
	}
	s.Store = mem

	s.log.WithFields(logrus.Fields{
		"dir":      dir,
		"headers":  len(data.Headers),
		"accounts": len(data.Accounts),
		"entries":  len(data.Entries),
	}).Debug("ledger loaded")
	return s, nil
}

// Dir returns the project directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) persist(_ context.Context, data memstore.Data, changes memstore.Changes) error {
	if changes.Chart {
		if err := writeFile(filepath.Join(s.dir, HeadersPath), func(w io.Writer) error {
			return accounts.WriteHeaders(s.writer(w), data.Headers)
		}); err != nil {
			return err
		}
		if err := writeFile(filepath.Join(s.dir, AccountsPath), func(w io.Writer) error {
			return accounts.WriteAccounts(s.writer(w), data.Accounts)
		}); err != nil {
			return err
		}
	}
	if changes.Journal {
		if err := writeFile(filepath.Join(s.dir, JournalPath), func(w io.Writer) error {
			return journal.WriteEntries(s.writer(w), data.Entries)
		}); err != nil {
			return err
		}
	}
	s.log.WithFields(logrus.Fields{"chart": changes.Chart, "journal": changes.Journal}).Debug("ledger written")
	return nil
}

func (s *Store) writer(w io.Writer) io.Writer {
	if s.output == nil {
		return w
	}
	return s.output(w)
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Wrap("open", err)
	}
	defer f.Close()

	out, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// writeFile replaces path atomically via a temp file in the same directory.
func writeFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
