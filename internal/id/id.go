package id

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cleared-dev/ledger/internal/model"
)

// FormatEntryRef returns an entry reference like "GJ-12".
func FormatEntryRef(kind model.EntryKind, entryID int64) string {
	return fmt.Sprintf("%s-%d", kind, entryID)
}

// ParseEntryRef parses "GJ-12" into kind and entry ID. The kind prefix is
// case-insensitive.
func ParseEntryRef(ref string) (model.EntryKind, int64, error) {
	prefix, num, ok := strings.Cut(strings.TrimSpace(ref), "-")
	if !ok {
		return "", 0, fmt.Errorf("invalid entry reference format: %q", ref)
	}

	kind := model.EntryKind(strings.ToUpper(prefix))
	if !kind.Valid() {
		return "", 0, fmt.Errorf("invalid entry kind in reference %q", ref)
	}

	entryID, err := strconv.ParseInt(num, 10, 64)
	if err != nil || entryID <= 0 {
		return "", 0, fmt.Errorf("invalid entry number in reference %q", ref)
	}
	return kind, entryID, nil
}

// Slugify derives a URL-safe slug from a display name.
// "Owner's Equity" -> "owners-equity"
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case r == '\'':
			// Apostrophes join words.
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
