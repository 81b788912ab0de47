package pool

import (
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/joshuapare/framealloc/arena"
	"github.com/joshuapare/framealloc/internal/logger"
	"github.com/joshuapare/framealloc/internal/store"
)

// Options configures a Pool. A nil *Options, or any zero field, selects the
// default for that field.
type Options struct {
	// Tiers route requests by byte size (default DefaultTiers()).
	Tiers []Tier

	// Store reserves page buffers (default store.Heap{}).
	Store store.Store

	// Arena builds a page over each reserved buffer (default arena.FreeList()).
	Arena arena.Factory

	// Logger receives page creation, store failure and reset events
	// (default logger.L).
	Logger logrus.FieldLogger
}

// withDefaults returns a copy of o with every zero field filled in.
func (o *Options) withDefaults() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if len(out.Tiers) == 0 {
		out.Tiers = DefaultTiers()
	} else {
		out.Tiers = slices.Clone(out.Tiers)
	}
	if out.Store == nil {
		out.Store = store.Heap{}
	}
	if out.Arena == nil {
		out.Arena = arena.FreeList()
	}
	if out.Logger == nil {
		out.Logger = logger.L
	}
	return out
}
