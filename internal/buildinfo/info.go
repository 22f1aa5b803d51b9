// Package buildinfo holds the version stamped into the ledger binary.
package buildinfo

// Set with -ldflags "-X github.com/cleared-dev/ledger/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
