package accounts

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
	"github.com/cleared-dev/ledger/internal/validation"
)

// Service administers the chart of accounts.
type Service struct {
	store store.Store
	log   logrus.FieldLogger
}

// NewService creates a Service over s.
func NewService(s store.Store, log logrus.FieldLogger) *Service {
	return &Service{store: s, log: log.WithField("component", "accounts")}
}

// HeaderParams holds the inputs for SaveHeader.
type HeaderParams struct {
	ID       int64             // 0 creates a new header
	Name     string            `validate:"required,max=100"`
	ParentID int64             // 0 = root
	Type     model.AccountType `validate:"omitempty,accounttype"` // defaults to the parent's type
}

// AccountParams holds the inputs for SaveAccount.
type AccountParams struct {
	ID       int64             // 0 creates a new account
	Name     string            `validate:"required,max=100"`
	HeaderID int64             `validate:"gt=0"`
	Type     model.AccountType `validate:"omitempty,accounttype"` // defaults to the header's type
	Bank     bool
}

// Headers returns every header ordered by ID.
func (s *Service) Headers(ctx context.Context) ([]model.Header, error) {
	var out []model.Header
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		out, err = r.Headers(ctx)
		return err
	})
	return out, err
}

// Accounts returns every account ordered by ID.
func (s *Service) Accounts(ctx context.Context) ([]model.Account, error) {
	var out []model.Account
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		out, err = r.Accounts(ctx)
		return err
	})
	return out, err
}

// ByType returns all accounts of the given type.
func (s *Service) ByType(ctx context.Context, accountType model.AccountType) ([]model.Account, error) {
	all, err := s.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	var result []model.Account
	for _, a := range all {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result, nil
}

// BankAccounts returns the accounts usable as the bank side of bank entries.
func (s *Service) BankAccounts(ctx context.Context) ([]model.Account, error) {
	all, err := s.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	var result []model.Account
	for _, a := range all {
		if a.Bank {
			result = append(result, a)
		}
	}
	return result, nil
}

// ResolveAccount finds an account by slug, or by numeric ID when no slug
// matches.
func (s *Service) ResolveAccount(ctx context.Context, ref string) (model.Account, error) {
	var out model.Account
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		out, err = r.AccountBySlug(ctx, ref)
		if n, perr := strconv.ParseInt(ref, 10, 64); store.IsNotFound(err) && perr == nil {
			out, err = r.Account(ctx, n)
		}
		return err
	})
	return out, err
}

// ResolveHeader finds a header by slug, or by numeric ID when no slug matches.
func (s *Service) ResolveHeader(ctx context.Context, ref string) (model.Header, error) {
	var out model.Header
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		out, err = r.HeaderBySlug(ctx, ref)
		if n, perr := strconv.ParseInt(ref, 10, 64); store.IsNotFound(err) && perr == nil {
			out, err = r.Header(ctx, n)
		}
		return err
	})
	return out, err
}

// Tree lists headerID and all of its descendants in pre-order, each with its
// accounts. headerID 0 lists the whole chart.
func (s *Service) Tree(ctx context.Context, headerID int64) ([]Node, error) {
	var out []Node
	err := s.store.View(ctx, func(r store.Reader) error {
		headers, err := r.Headers(ctx)
		if err != nil {
			return err
		}
		accts, err := r.Accounts(ctx)
		if err != nil {
			return err
		}
		out, err = BuildTree(headers, accts, headerID)
		return err
	})
	return out, err
}

// SaveHeader creates or updates a header.
func (s *Service) SaveHeader(ctx context.Context, params HeaderParams) (model.Header, error) {
	if err := validation.Struct(params); err != nil {
		return model.Header{}, err
	}

	h := model.Header{ID: params.ID, Name: params.Name, ParentID: params.ParentID, Type: params.Type}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if h.ID != 0 {
			if _, err := tx.Header(ctx, h.ID); err != nil {
				return err
			}
		}
		if h.ParentID != 0 {
			parent, err := tx.Header(ctx, h.ParentID)
			if err != nil {
				return err
			}
			if h.Type == "" {
				h.Type = parent.Type
			}
			if err := checkAncestry(ctx, tx, h.ID, h.ParentID); err != nil {
				return err
			}
		}
		if h.Type == "" {
			return &validation.FieldsError{Fields: map[string]string{"type": "type is required for root headers"}}
		}

		slug, err := headerSlug(ctx, tx, h.ID, h.Name)
		if err != nil {
			return err
		}
		h.Slug = slug
		return tx.PutHeader(ctx, &h)
	})
	if err != nil {
		return model.Header{}, err
	}

	s.log.WithFields(logrus.Fields{"header_id": h.ID, "slug": h.Slug}).Info("header saved")
	return h, nil
}

// DeleteHeader removes a header that has no child headers and no accounts.
func (s *Service) DeleteHeader(ctx context.Context, headerID int64) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.Header(ctx, headerID); err != nil {
			return err
		}
		headers, err := tx.Headers(ctx)
		if err != nil {
			return err
		}
		for _, h := range headers {
			if h.ParentID == headerID {
				return &InUseError{Resource: "header", ID: headerID, Reason: fmt.Sprintf("child header %q", h.Slug)}
			}
		}
		accts, err := tx.Accounts(ctx)
		if err != nil {
			return err
		}
		for _, a := range accts {
			if a.HeaderID == headerID {
				return &InUseError{Resource: "header", ID: headerID, Reason: fmt.Sprintf("account %q", a.Slug)}
			}
		}
		return tx.DeleteHeader(ctx, headerID)
	})
	if err != nil {
		return err
	}

	s.log.WithField("header_id", headerID).Info("header deleted")
	return nil
}

// SaveAccount creates or updates an account.
func (s *Service) SaveAccount(ctx context.Context, params AccountParams) (model.Account, error) {
	if err := validation.Struct(params); err != nil {
		return model.Account{}, err
	}

	a := model.Account{ID: params.ID, Name: params.Name, HeaderID: params.HeaderID, Type: params.Type, Bank: params.Bank}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if a.ID != 0 {
			prev, err := tx.Account(ctx, a.ID)
			if err != nil {
				return err
			}
			// Bank entries already posted depend on which side the account is on.
			if prev.Bank != a.Bank {
				used, err := tx.AccountInUse(ctx, a.ID)
				if err != nil {
					return err
				}
				if used {
					return &InUseError{Resource: "account", ID: a.ID, Reason: "ledger lines reference it, so its bank flag cannot change"}
				}
			}
		}
		header, err := tx.Header(ctx, a.HeaderID)
		if err != nil {
			return err
		}
		if a.Type == "" {
			a.Type = header.Type
		}

		slug, err := accountSlug(ctx, tx, a.ID, a.Name)
		if err != nil {
			return err
		}
		a.Slug = slug
		return tx.PutAccount(ctx, &a)
	})
	if err != nil {
		return model.Account{}, err
	}

	s.log.WithFields(logrus.Fields{"account_id": a.ID, "slug": a.Slug, "bank": a.Bank}).Info("account saved")
	return a, nil
}

// checkAncestry rejects making parentID an ancestor of headerID when
// headerID is already an ancestor of parentID.
func checkAncestry(ctx context.Context, r store.Reader, headerID, parentID int64) error {
	seen := make(map[int64]bool)
	for cur := parentID; cur != 0; {
		if cur == headerID || seen[cur] {
			return &CycleError{HeaderID: headerID}
		}
		seen[cur] = true
		h, err := r.Header(ctx, cur)
		if err != nil {
			return err
		}
		cur = h.ParentID
	}
	return nil
}

func headerSlug(ctx context.Context, r store.Reader, selfID int64, name string) (string, error) {
	slug := id.Slugify(name)
	if slug == "" {
		return "", &validation.FieldsError{Fields: map[string]string{"name": "name must contain letters or digits"}}
	}
	existing, err := r.HeaderBySlug(ctx, slug)
	switch {
	case err == nil && existing.ID != selfID:
		return "", &DuplicateSlugError{Resource: "header", Slug: slug}
	case err != nil && !store.IsNotFound(err):
		return "", err
	}
	return slug, nil
}

func accountSlug(ctx context.Context, r store.Reader, selfID int64, name string) (string, error) {
	slug := id.Slugify(name)
	if slug == "" {
		return "", &validation.FieldsError{Fields: map[string]string{"name": "name must contain letters or digits"}}
	}
	existing, err := r.AccountBySlug(ctx, slug)
	switch {
	case err == nil && existing.ID != selfID:
		return "", &DuplicateSlugError{Resource: "account", Slug: slug}
	case err != nil && !store.IsNotFound(err):
		return "", err
	}
	return slug, nil
}

// DeleteAccount removes an account that no ledger line references.
func (s *Service) DeleteAccount(ctx context.Context, accountID int64) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.Account(ctx, accountID); err != nil {
			return err
		}
		used, err := tx.AccountInUse(ctx, accountID)
		if err != nil {
			return err
		}
		if used {
			return &InUseError{Resource: "account", ID: accountID, Reason: "ledger lines reference it"}
		}
		return tx.DeleteAccount(ctx, accountID)
	})
	if err != nil {
		return err
	}

	s.log.WithField("account_id", accountID).Info("account deleted")
	return nil
}
