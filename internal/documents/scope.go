package documents

import (
	"fmt"
	"strings"
)

// Scope is the visibility filter applied to document listings.
type Scope string

const (
	ScopeMy      Scope = "MY"
	ScopeCompany Scope = "COMPANY"
	ScopeAll     Scope = "ALL"
)

// ParseScope parses a scope value case-insensitively. Empty input defaults
// to ALL; anything else unknown is rejected.
func ParseScope(raw string) (Scope, error) {
	switch Scope(strings.ToUpper(strings.TrimSpace(raw))) {
	case "":
		return ScopeAll, nil
	case ScopeMy:
		return ScopeMy, nil
	case ScopeCompany:
		return ScopeCompany, nil
	case ScopeAll:
		return ScopeAll, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
}

// Allows reports whether a record with the given owner and shared flag is
// visible to callerID under this scope. The same predicate applies whether
// the record came from the metadata store or from a raw object listing.
// Admin status never widens read visibility.
func (s Scope) Allows(callerID, recordOwner string, recordShared bool) bool {
	switch s {
	case ScopeMy:
		return recordOwner == callerID && !recordShared
	case ScopeCompany:
		return recordShared
	default: // ScopeAll
		return recordOwner == callerID || recordShared
	}
}

// Prefixes returns the object-store key prefixes a listing must cover for
// this scope and caller.
func (s Scope) Prefixes(callerID string) []string {
	personal := usersPrefix + callerID + "/"
	switch s {
	case ScopeMy:
		return []string{personal}
	case ScopeCompany:
		return []string{companyPrefix, legacyCompanyPrefix}
	default: // ScopeAll
		return []string{personal, companyPrefix, legacyCompanyPrefix}
	}
}
