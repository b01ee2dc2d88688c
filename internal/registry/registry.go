// Package registry holds the descriptors of upstream geodata services and
// the groups that bundle them. The registry is read-only after load.
package registry

// Registry maps service keys to their descriptors and group keys to groups.
type Registry struct {
	descriptors map[string]*ServiceDescriptor
	groups      map[string]*Group
	order       []string // descriptor insertion order for deterministic listing
	groupOrder  []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		descriptors: make(map[string]*ServiceDescriptor),
		groups:      make(map[string]*Group),
	}
}

// Register adds a descriptor. Later registrations with the same key win.
func (r *Registry) Register(d *ServiceDescriptor) {
	if _, exists := r.descriptors[d.Key]; !exists {
		r.order = append(r.order, d.Key)
	}
	r.descriptors[d.Key] = d
}

// RegisterGroup adds a group.
func (r *Registry) RegisterGroup(g *Group) {
	if _, exists := r.groups[g.Key]; !exists {
		r.groupOrder = append(r.groupOrder, g.Key)
	}
	r.groups[g.Key] = g
}

// GetByKey returns the descriptor for key.
func (r *Registry) GetByKey(key string) (*ServiceDescriptor, bool) {
	d, ok := r.descriptors[key]
	return d, ok
}

// Group returns the group for key.
func (r *Registry) Group(key string) (*Group, bool) {
	g, ok := r.groups[key]
	return g, ok
}

// All returns descriptors in registration order.
func (r *Registry) All() []*ServiceDescriptor {
	out := make([]*ServiceDescriptor, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.descriptors[key])
	}
	return out
}

// Groups returns groups in registration order.
func (r *Registry) Groups() []*Group {
	out := make([]*Group, 0, len(r.groupOrder))
	for _, key := range r.groupOrder {
		out = append(out, r.groups[key])
	}
	return out
}
