package main

import (
	"fmt"

	"github.com/chazu/stacklog/manifest"
	"github.com/chazu/stacklog/pkg/bytecode"
	"github.com/chazu/stacklog/pkg/instrument"
)

// unscoped names the listing for probes that give no method.
const unscoped = "<unscoped>"

// emitProbes emits every probe of m into one listing per method, in the
// order methods first appear. With verify set, each probe is run on the
// stack simulator before the next is emitted.
func emitProbes(e *instrument.Emitter, m *manifest.Manifest, verify bool) ([]*bytecode.Listing, error) {
	var listings []*bytecode.Listing
	byMethod := make(map[string]*bytecode.Listing)

	for i, p := range m.Probes {
		ev, err := p.ToEvent()
		if err != nil {
			return nil, fmt.Errorf("probe %d: %w", i, err)
		}

		name := p.Method
		if name == "" {
			name = unscoped
		}
		l, ok := byMethod[name]
		if !ok {
			l = bytecode.NewListing(name)
			byMethod[name] = l
			listings = append(listings, l)
		}

		start := l.Len()
		if _, err := e.Emit(l, ev); err != nil {
			l.Truncate(start)
			return nil, fmt.Errorf("probe %d (%s %s): %w", i, ev.Kind(), name, err)
		}
		if verify {
			if err := instrument.Verify(l.Code[start:], ev); err != nil {
				return nil, fmt.Errorf("probe %d (%s %s): %w", i, ev.Kind(), name, err)
			}
		}
	}
	return listings, nil
}
