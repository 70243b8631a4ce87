// Package colors derives display colors for accounts: a default color from
// the account type, and the inherited header color from an account's
// top-level ancestor.
package colors

import (
	"strings"

	"github.com/rongwang/bookkeeper-server/internal/models"
)

const (
	Blue   = "#2196F3"
	Orange = "#FF9800"
	Red    = "#F44336"
	Green  = "#4CAF50"
	Purple = "#9C27B0"

	// Fallback is returned for unmatched types and when an ancestor walk
	// cannot complete.
	Fallback = Blue

	// DefaultHeader is the header color for views with no current account.
	DefaultHeader = Green
)

// maxWalkDepth bounds the ancestor walk in TopLevel. The tree invariant
// forbids cycles, but the resolver must not loop forever if it is ever
// violated by an out-of-band mutation.
const maxWalkDepth = 64

// DefaultForType maps an account type to its default color. Matching is by
// case-insensitive substring so that both "CREDIT_CARD" and "CREDIT CARD"
// land in the same bucket.
func DefaultForType(accountType models.AccountType) string {
	t := strings.ToUpper(string(accountType))
	switch {
	case strings.Contains(t, "ASSET"), strings.Contains(t, "BANK"), strings.Contains(t, "CASH"):
		return Blue
	case strings.Contains(t, "EQUITY"):
		return Orange
	case strings.Contains(t, "EXPENSE"):
		return Red
	case strings.Contains(t, "INCOME"):
		return Green
	case strings.Contains(t, "LIABILIT"), strings.Contains(t, "PAYABLE"):
		return Purple
	default:
		return Fallback
	}
}

// TopLevel returns the color of the top-level ancestor of account, resolving
// parents through lookup. A parentless account keeps its own color. The walk
// is bounded; if the parent chain is broken or cyclic the resolver fails
// closed and returns Fallback.
func TopLevel(account *models.Account, lookup func(id string) *models.Account) string {
	if account == nil {
		return Fallback
	}
	current := account
	for depth := 0; current.ParentID != nil; depth++ {
		if depth >= maxWalkDepth {
			return Fallback
		}
		parent := lookup(*current.ParentID)
		if parent == nil {
			return Fallback
		}
		current = parent
	}
	return current.Color
}
