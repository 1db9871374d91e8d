package roles

import (
	"fmt"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// Registry holds the role set of a session, in launch order.
type Registry struct {
	order []domain.Role
	specs map[domain.Role]Spec
}

// NewRegistry creates a registry with every built-in role. Watchers launch
// before their consumers.
func NewRegistry() *Registry {
	return NewRegistryWithSpecs(MotionSpec(), ColorSpec(), ActorSpec(), InjectorSpec())
}

// NewRegistryWithSpecs creates a registry with custom roles (for testing).
func NewRegistryWithSpecs(specs ...Spec) *Registry {
	r := &Registry{specs: make(map[domain.Role]Spec)}
	for _, s := range specs {
		r.Register(s)
	}
	return r
}

// Register adds a role. Registering an ID again replaces its spec in place.
func (r *Registry) Register(s Spec) {
	if _, ok := r.specs[s.ID]; !ok {
		r.order = append(r.order, s.ID)
	}
	r.specs[s.ID] = s
}

// Get returns a role spec by ID.
func (r *Registry) Get(id domain.Role) (Spec, bool) {
	s, ok := r.specs[id]
	return s, ok
}

// Lookup is Get with an error for unknown roles.
func (r *Registry) Lookup(id string) (Spec, error) {
	s, ok := r.specs[domain.Role(id)]
	if !ok {
		return Spec{}, fmt.Errorf("unknown role %q (known: %v)", id, r.List())
	}
	return s, nil
}

// GetAll returns every spec in launch order.
func (r *Registry) GetAll() []Spec {
	result := make([]Spec, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.specs[id])
	}
	return result
}

// List returns role IDs in launch order.
func (r *Registry) List() []domain.Role {
	return append([]domain.Role(nil), r.order...)
}

// Matches reports whether argv is a known role process of session.
func (r *Registry) Matches(args []string, session string) bool {
	role, s, ok := Parse(args)
	if !ok || s != session {
		return false
	}
	_, known := r.specs[role]
	return known
}

// Validate checks that no channel has two writing roles.
func (r *Registry) Validate() error {
	owners := make(map[domain.Channel]domain.Role)
	for _, id := range r.order {
		for _, c := range r.specs[id].Writes {
			if prev, dup := owners[c]; dup {
				return fmt.Errorf("channel %s has two writers: %s and %s", c, prev, id)
			}
			owners[c] = id
		}
	}
	return nil
}
