package accounts

import (
	"sort"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// Node is one header in a pre-order walk of the chart.
type Node struct {
	Header   model.Header
	Depth    int             // 0 for the walk's starting headers
	Accounts []model.Account // ordered by name, then ID
}

// BuildTree walks headers in pre-order starting at rootID, or at every root
// header when rootID is 0. Siblings are ordered by name, then ID. Headers
// whose parent is missing are treated as roots.
func BuildTree(headers []model.Header, accts []model.Account, rootID int64) ([]Node, error) {
	byID := make(map[int64]model.Header, len(headers))
	for _, h := range headers {
		byID[h.ID] = h
	}

	children := make(map[int64][]model.Header)
	var roots []model.Header
	for _, h := range headers {
		if _, ok := byID[h.ParentID]; h.ParentID == 0 || !ok {
			roots = append(roots, h)
			continue
		}
		children[h.ParentID] = append(children[h.ParentID], h)
	}
	for _, kids := range children {
		sortHeaders(kids)
	}
	sortHeaders(roots)

	byHeader := make(map[int64][]model.Account)
	for _, a := range accts {
		byHeader[a.HeaderID] = append(byHeader[a.HeaderID], a)
	}
	for _, list := range byHeader {
		sort.Slice(list, func(i, j int) bool {
			if list[i].Name != list[j].Name {
				return list[i].Name < list[j].Name
			}
			return list[i].ID < list[j].ID
		})
	}

	start := roots
	if rootID != 0 {
		h, ok := byID[rootID]
		if !ok {
			return nil, store.NotFound("header", rootID)
		}
		start = []model.Header{h}
	}

	var (
		out     []Node
		visited = make(map[int64]bool, len(headers))
	)
	var walk func(h model.Header, depth int) error
	walk = func(h model.Header, depth int) error {
		if visited[h.ID] {
			return &CycleError{HeaderID: h.ID}
		}
		visited[h.ID] = true
		out = append(out, Node{Header: h, Depth: depth, Accounts: byHeader[h.ID]})
		for _, c := range children[h.ID] {
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, h := range start {
		if err := walk(h, 0); err != nil {
			return nil, err
		}
	}

	// Anything unreached from the roots hangs off a parent cycle.
	if rootID == 0 && len(visited) < len(headers) {
		for _, h := range headers {
			if !visited[h.ID] {
				return nil, &CycleError{HeaderID: h.ID}
			}
		}
	}
	return out, nil
}

// HeaderIDs returns the header IDs of nodes in walk order.
func HeaderIDs(nodes []Node) []int64 {
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.Header.ID
	}
	return ids
}

func sortHeaders(hs []model.Header) {
	sort.Slice(hs, func(i, j int) bool {
		if hs[i].Name != hs[j].Name {
			return hs[i].Name < hs[j].Name
		}
		return hs[i].ID < hs[j].ID
	})
}
