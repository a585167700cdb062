package glasses

import (
	"strings"
	"sync"
)

// Side identifies one of the two links of a pair.
type Side int

const (
	Left Side = iota
	Right
)

// String returns the side name.
func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Endpoint is one discovered side of a pair.
type Endpoint struct {
	Side Side
	Adv  Advertisement
}

// Pair is a complete left/right pair sharing a grouping key.
type Pair struct {
	Key   string
	Left  Advertisement
	Right Advertisement
}

// ParseName extracts the grouping key and side from an advertised name.
//
// Names follow "<label>_<key>_<L|R>_<suffix>" (some firmware drops the
// label segment). The side token is the first underscore-separated segment
// equal to L or R; the grouping key is the segment immediately before it.
func ParseName(name string) (key string, side Side, ok bool) {
	parts := strings.Split(name, "_")
	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "L":
			return parts[i-1], Left, true
		case "R":
			return parts[i-1], Right, true
		}
	}
	return "", 0, false
}

// Registry groups discovered advertisements into pairs. A pair becomes
// connectable once both sides have been seen, regardless of discovery
// order.
type Registry struct {
	mu    sync.Mutex
	pairs map[string]*pairEntry
}

type pairEntry struct {
	left  *Advertisement
	right *Advertisement
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pairs: make(map[string]*pairEntry)}
}

// Observe records an advertisement. It returns the completed pair and
// true once both sides of its key are known; re-advertisements of a known
// side update the stored identity.
func (r *Registry) Observe(adv Advertisement) (Pair, bool) {
	key, side, ok := ParseName(adv.Name)
	if !ok {
		return Pair{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.pairs[key]
	if entry == nil {
		entry = &pairEntry{}
		r.pairs[key] = entry
	}

	a := adv
	if side == Left {
		entry.left = &a
	} else {
		entry.right = &a
	}

	if entry.left == nil || entry.right == nil {
		return Pair{}, false
	}
	return Pair{Key: key, Left: *entry.left, Right: *entry.right}, true
}

// Pair returns the pair for key if both sides have been discovered.
func (r *Registry) Pair(key string) (Pair, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.pairs[key]
	if entry == nil || entry.left == nil || entry.right == nil {
		return Pair{}, false
	}
	return Pair{Key: key, Left: *entry.left, Right: *entry.right}, true
}

// Pairs returns the keys of all complete pairs.
func (r *Registry) Pairs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var keys []string
	for key, entry := range r.pairs {
		if entry.left != nil && entry.right != nil {
			keys = append(keys, key)
		}
	}
	return keys
}

// Reset forgets all discovered advertisements.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = make(map[string]*pairEntry)
}
