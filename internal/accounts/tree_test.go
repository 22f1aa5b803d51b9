package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

func header(id, parent int64, name string) model.Header {
	return model.Header{ID: id, Name: name, ParentID: parent, Type: model.AccountTypeAsset}
}

func names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Header.Name
	}
	return out
}

func TestBuildTree_PreOrder(t *testing.T) {
	headers := []model.Header{
		header(1, 0, "Assets"),
		header(2, 1, "Receivables"),
		header(3, 1, "Cash"),
		header(4, 3, "Petty"),
		header(5, 0, "Expenses"),
		header(6, 1, "Cash"), // same name, higher ID sorts after
	}
	accts := []model.Account{
		{ID: 10, Name: "Savings", HeaderID: 3},
		{ID: 11, Name: "Checking", HeaderID: 3},
	}

	nodes, err := BuildTree(headers, accts, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Assets", "Cash", "Petty", "Cash", "Receivables", "Expenses"}, names(nodes))
	assert.Equal(t, []int64{1, 3, 4, 6, 2, 5}, HeaderIDs(nodes))
	assert.Equal(t, []int{0, 1, 2, 1, 1, 0}, []int{
		nodes[0].Depth, nodes[1].Depth, nodes[2].Depth, nodes[3].Depth, nodes[4].Depth, nodes[5].Depth,
	})

	require.Len(t, nodes[1].Accounts, 2)
	assert.Equal(t, "Checking", nodes[1].Accounts[0].Name)
}

func TestBuildTree_Subtree(t *testing.T) {
	headers := []model.Header{
		header(1, 0, "Assets"),
		header(2, 1, "Cash"),
		header(3, 2, "Petty"),
		header(4, 0, "Expenses"),
	}

	nodes, err := BuildTree(headers, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, HeaderIDs(nodes))
	assert.Equal(t, 0, nodes[0].Depth)

	nodes, err = BuildTree(headers, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, HeaderIDs(nodes), "a leaf header lists only itself")
}

func TestBuildTree_Deterministic(t *testing.T) {
	headers := []model.Header{
		header(3, 1, "B"),
		header(1, 0, "Root"),
		header(2, 1, "A"),
	}
	first, err := BuildTree(headers, nil, 0)
	require.NoError(t, err)

	reversed := []model.Header{headers[2], headers[1], headers[0]}
	second, err := BuildTree(reversed, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, HeaderIDs(first), HeaderIDs(second))
}

func TestBuildTree_Cycle(t *testing.T) {
	headers := []model.Header{
		header(1, 0, "Assets"),
		header(2, 3, "Loop A"),
		header(3, 2, "Loop B"),
	}

	_, err := BuildTree(headers, nil, 0)
	var ce *CycleError
	require.ErrorAs(t, err, &ce)

	_, err = BuildTree(headers, nil, 2)
	require.ErrorAs(t, err, &ce)
}

func TestBuildTree_MissingRoot(t *testing.T) {
	_, err := BuildTree([]model.Header{header(1, 0, "Assets")}, nil, 42)
	assert.True(t, store.IsNotFound(err))
}

func TestBuildTree_OrphanTreatedAsRoot(t *testing.T) {
	nodes, err := BuildTree([]model.Header{header(5, 99, "Orphan")}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, HeaderIDs(nodes))
}

func TestTree_DefaultChart(t *testing.T) {
	svc := seededService(t)

	nodes, err := svc.Tree(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Assets", "Cash", "Equity", "Expenses", "Operating Expenses", "Liabilities", "Revenue",
	}, names(nodes))

	nodes, err = svc.Tree(context.Background(), 6)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Len(t, nodes[1].Accounts, 6)
}
