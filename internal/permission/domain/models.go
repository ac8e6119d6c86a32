package domain

import (
	"errors"
	"strings"
)

// Tier is the effective access level a user holds on a grid.
type Tier string

const (
	TierNone Tier = "none"
	TierView Tier = "view"
	TierEdit Tier = "edit"
)

func (t Tier) rank() int {
	switch t {
	case TierEdit:
		return 2
	case TierView:
		return 1
	default:
		return 0
	}
}

// Satisfies reports whether t grants at least the required tier.
func (t Tier) Satisfies(required Tier) bool {
	return t.rank() >= required.rank() && t != TierNone
}

// ParseShareTier accepts the two values a share row may carry.
func ParseShareTier(raw string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierView:
		return TierView, true
	case TierEdit:
		return TierEdit, true
	default:
		return TierNone, false
	}
}

// Errors shared by every package that gates on grid access. Other domains
// re-export these so errors.Is works across package boundaries.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not_found")
)
