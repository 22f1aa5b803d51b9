// Package importer turns bank statement exports into receiving and spending
// entries.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// Transaction is one row of a bank statement. Positive amounts are money
// into the account.
type Transaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Reference   string
	Type        string
}

// Parser converts a bank CSV file into Transactions.
type Parser interface {
	Parse(r io.Reader) ([]Transaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	return r
}

const (
	importDir    = "import"
	processedDir = "import/processed"
)

// Scan returns CSV files in <root>/import/.
func Scan(root string) ([]FileInfo, error) {
	dir := filepath.Join(root, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	src := filepath.Join(root, importDir, fileName)
	dstDir := filepath.Join(root, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// Journal is the part of journal.Service the importer writes through.
type Journal interface {
	SaveEntry(ctx context.Context, params journal.SaveParams) (model.Entry, error)
	Entries(ctx context.Context, f store.EntryFilter) ([]model.Entry, error)
}

// Params selects the accounts an import books against.
type Params struct {
	BankAccountID   int64 // main line of every entry
	OffsetAccountID int64 // single detail line of every entry
	Now             time.Time
}

// Result summarizes an import.
type Result struct {
	Created []model.Entry
	Skipped []Transaction // already imported or zero amount
}

// Importer books statement transactions as bank entries.
type Importer struct {
	journal Journal
	log     logrus.FieldLogger
}

// New creates an Importer.
func New(j Journal, log logrus.FieldLogger) *Importer {
	return &Importer{journal: j, log: log.WithField("component", "importer")}
}

// Import records each transaction as a CR (money in) or CD (money out) entry
// with one detail line on the offset account. Transactions whose reference
// is already in the journal are skipped, so re-importing a file is harmless.
// Each entry is its own write; on error the entries created so far remain.
func (im *Importer) Import(ctx context.Context, txns []Transaction, p Params) (Result, error) {
	var res Result
	for _, txn := range txns {
		if txn.Amount.IsZero() {
			im.log.WithField("reference", txn.Reference).Warn("zero amount, skipping")
			res.Skipped = append(res.Skipped, txn)
			continue
		}

		existing, err := im.journal.Entries(ctx, store.EntryFilter{Reference: txn.Reference})
		if err != nil {
			return res, err
		}
		if len(existing) > 0 {
			im.log.WithField("reference", txn.Reference).Debug("already imported")
			res.Skipped = append(res.Skipped, txn)
			continue
		}

		kind := model.KindBankReceive
		if txn.Amount.IsNegative() {
			kind = model.KindBankSpend
		}
		e, err := im.journal.SaveEntry(ctx, journal.SaveParams{
			Kind:          kind,
			Date:          txn.Date,
			Memo:          txn.Description,
			Reference:     txn.Reference,
			BankAccountID: p.BankAccountID,
			Lines: []journal.LineEdit{{
				Op:        journal.OpCreate,
				AccountID: p.OffsetAccountID,
				Amount:    txn.Amount.Abs(),
				Detail:    txn.Description,
			}},
			Now: p.Now,
		})
		if err != nil {
			return res, fmt.Errorf("importing %s: %w", txn.Reference, err)
		}
		res.Created = append(res.Created, e)
	}

	im.log.WithFields(logrus.Fields{
		"created": len(res.Created),
		"skipped": len(res.Skipped),
	}).Info("import finished")
	return res, nil
}
