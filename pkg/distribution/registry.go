package distribution

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Registry indexes distributions and resolves lookups against them.
type Registry struct {
	// mu protects the registry state.
	mu sync.RWMutex

	// entries holds distributions in catalog order. Order matters:
	// lookups that match several entries equally well keep the earliest.
	entries []Distribution

	// keys tracks registered entry keys (including flavor) to reject
	// duplicates.
	keys map[string]bool

	// validate checks struct tags on registration.
	validate *validator.Validate
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		keys:     make(map[string]bool),
		validate: validator.New(),
	}
}

// DefaultRegistry creates a registry populated from the embedded catalog.
func DefaultRegistry() (*Registry, error) {
	catalog, err := EmbeddedCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded catalog: %w", err)
	}

	r := NewRegistry()
	if err := r.LoadCatalog(catalog); err != nil {
		return nil, err
	}

	return r, nil
}

// LoadCatalog registers every distribution in the catalog.
func (r *Registry) LoadCatalog(catalog *Catalog) error {
	for _, dist := range catalog.Distributions {
		if err := r.Register(dist); err != nil {
			return err
		}
	}

	return nil
}

// Register adds a distribution to the registry.
func (r *Registry) Register(dist Distribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validate.Struct(dist); err != nil {
		return fmt.Errorf("invalid distribution %s: %w", dist.Key(), err)
	}

	key := dist.Key() + "+" + string(dist.Flavor)
	if r.keys[key] {
		return fmt.Errorf("distribution %s (%s) already registered", dist.Key(), dist.Flavor)
	}

	r.keys[key] = true
	r.entries = append(r.entries, dist)

	return nil
}

// Find resolves a distribution by name, version, target triple, and
// flavor. An empty or "latest" version selects the highest version
// available. An empty flavor matches any flavor. Among entries that
// match equally well, the one registered first wins.
func (r *Registry) Find(name, version, targetTriple string, flavor Flavor) (Distribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		return Distribution{}, fmt.Errorf("distribution name is required")
	}
	if targetTriple == "" {
		return Distribution{}, fmt.Errorf("target triple is required")
	}
	if flavor != "" && !flavor.Valid() {
		return Distribution{}, fmt.Errorf("unknown distribution flavor %q", flavor)
	}

	latest := version == "" || version == "latest"

	best := -1
	for i, dist := range r.entries {
		if dist.Name != name || dist.TargetTriple != targetTriple {
			continue
		}
		if flavor != "" && dist.Flavor != flavor {
			continue
		}
		if !latest && dist.Version != version {
			continue
		}

		if best == -1 {
			best = i
			continue
		}
		if latest && compareVersions(dist.Version, r.entries[best].Version) > 0 {
			best = i
		}
	}

	if best == -1 {
		shown := version
		if latest {
			shown = "latest"
		}
		return Distribution{}, fmt.Errorf("no distribution %s@%s for target %s", name, shown, targetTriple)
	}

	return r.entries[best], nil
}

// List returns all registered distributions in registration order.
func (r *Registry) List() []Distribution {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Distribution, len(r.entries))
	copy(out, r.entries)

	return out
}

// TargetTriples returns the sorted set of target triples with at least
// one registered distribution.
func (r *Registry) TargetTriples() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]bool)
	for _, dist := range r.entries {
		set[dist.TargetTriple] = true
	}

	triples := make([]string, 0, len(set))
	for triple := range set {
		triples = append(triples, triple)
	}
	sort.Strings(triples)

	return triples
}

// compareVersions compares dotted version strings segment by segment.
// Numeric segments compare numerically, others lexically. Missing
// segments count as zero, so "3.9" sorts below "3.9.1".
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		var sa, sb string
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}

		na, errA := strconv.Atoi(sa)
		nb, errB := strconv.Atoi(sb)
		switch {
		case errA == nil && errB == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case sa != sb:
			if sa < sb {
				return -1
			}
			return 1
		}
	}

	return 0
}
