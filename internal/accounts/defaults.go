package accounts

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// ChartHeader is a header template with its accounts and sub-headers.
type ChartHeader struct {
	Name     string
	Type     model.AccountType
	Accounts []ChartAccount
	Children []ChartHeader
}

// ChartAccount is an account template. Its type follows the enclosing header.
type ChartAccount struct {
	Name string
	Bank bool
}

// DefaultChart returns the default chart of accounts for an entity type.
func DefaultChart(entityType string) []ChartHeader {
	switch entityType {
	case "llc_single_member":
		return llcSingleMemberChart()
	default:
		return llcSingleMemberChart()
	}
}

func llcSingleMemberChart() []ChartHeader {
	return []ChartHeader{
		{Name: "Assets", Type: model.AccountTypeAsset, Children: []ChartHeader{
			{Name: "Cash", Type: model.AccountTypeAsset, Accounts: []ChartAccount{
				{Name: "Business Checking", Bank: true},
				{Name: "Business Savings", Bank: true},
			}},
		}},
		{Name: "Liabilities", Type: model.AccountTypeLiability, Accounts: []ChartAccount{
			{Name: "Credit Card"},
		}},
		{Name: "Equity", Type: model.AccountTypeEquity, Accounts: []ChartAccount{
			{Name: "Owner's Equity"},
		}},
		{Name: "Revenue", Type: model.AccountTypeRevenue, Accounts: []ChartAccount{
			{Name: "Service Revenue"},
			{Name: "Product Revenue"},
		}},
		{Name: "Expenses", Type: model.AccountTypeExpense, Children: []ChartHeader{
			{Name: "Operating Expenses", Type: model.AccountTypeExpense, Accounts: []ChartAccount{
				{Name: "Advertising & Marketing"},
				{Name: "Software & SaaS"},
				{Name: "Office Supplies"},
				{Name: "Professional Services"},
				{Name: "Shipping & Postage"},
				{Name: "Rent Expense"},
			}},
		}},
	}
}

// Seed writes a chart template into an empty store in one transaction.
func (s *Service) Seed(ctx context.Context, chart []ChartHeader) error {
	var headers, accts int
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var put func(parentID int64, ch ChartHeader) error
		put = func(parentID int64, ch ChartHeader) error {
			slug, err := headerSlug(ctx, tx, 0, ch.Name)
			if err != nil {
				return err
			}
			h := model.Header{Name: ch.Name, Slug: slug, ParentID: parentID, Type: ch.Type}
			if err := tx.PutHeader(ctx, &h); err != nil {
				return err
			}
			headers++
			for _, ca := range ch.Accounts {
				slug, err := accountSlug(ctx, tx, 0, ca.Name)
				if err != nil {
					return err
				}
				a := model.Account{Name: ca.Name, Slug: slug, HeaderID: h.ID, Type: ch.Type, Bank: ca.Bank}
				if err := tx.PutAccount(ctx, &a); err != nil {
					return err
				}
				accts++
			}
			for _, child := range ch.Children {
				if err := put(h.ID, child); err != nil {
					return err
				}
			}
			return nil
		}
		for _, ch := range chart {
			if err := put(0, ch); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"headers": headers, "accounts": accts}).Info("chart seeded")
	return nil
}
