package pool

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Tier is one band of request sizes served from pages of a common size.
type Tier struct {
	// Name is used in logs and statistics.
	Name string

	// Limit is the largest request, in bytes, routed to this tier.
	// Zero means unbounded and is only valid on the last tier.
	Limit int

	// PageSize is the minimum capacity of pages created for this tier. A
	// request larger than PageSize gets a page of its own size. Zero gives
	// every request a dedicated page.
	PageSize int
}

// Default tier boundaries.
const (
	SmallLimit    = 4 * 1024
	SmallPageSize = 64 * 1024
	LargeLimit    = 4 * 1024 * 1024
	LargePageSize = 4 * 1024 * 1024
)

// DefaultTiers returns the standard small / large / huge tiering.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "small", Limit: SmallLimit, PageSize: SmallPageSize},
		{Name: "large", Limit: LargeLimit, PageSize: LargePageSize},
		{Name: "huge", Limit: 0, PageSize: 0},
	}
}

// ValidateTiers checks that tiers are non-empty, have strictly ascending
// limits and non-negative page sizes, and that only the last one is unbounded.
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return errors.Wrap(ErrBadTiers, "no tiers")
	}

	var result *multierror.Error
	prev := 0
	for i, t := range tiers {
		switch {
		case t.Limit < 0:
			result = multierror.Append(result, errors.Errorf("tier %d (%s): negative limit %d", i, t.Name, t.Limit))
		case t.Limit == 0 && i != len(tiers)-1:
			result = multierror.Append(result, errors.Errorf("tier %d (%s): only the last tier may be unbounded", i, t.Name))
		case t.Limit > 0 && t.Limit <= prev:
			result = multierror.Append(result, errors.Errorf("tier %d (%s): limit %d not above previous limit %d", i, t.Name, t.Limit, prev))
		}
		if t.PageSize < 0 {
			result = multierror.Append(result, errors.Errorf("tier %d (%s): negative page size %d", i, t.Name, t.PageSize))
		}
		prev = max(prev, t.Limit)
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Wrap(ErrBadTiers, err.Error())
	}
	return nil
}

// selectTier returns the index of the first tier whose limit covers bytes.
func selectTier(tiers []Tier, bytes int) (int, bool) {
	for i, t := range tiers {
		if t.Limit == 0 || bytes <= t.Limit {
			return i, true
		}
	}
	return 0, false
}
