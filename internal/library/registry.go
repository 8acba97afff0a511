package library

// Store exposes library retrieval for services and HTTP handlers.
type Store interface {
	List() []*Library
	FindByName(name string) (*Library, bool)
}

// Registry implements Store over a fixed set of libraries.
type Registry struct {
	items []*Library
}

// NewRegistry returns a Registry preloaded with the supplied libraries.
func NewRegistry(items ...*Library) *Registry {
	return &Registry{items: append([]*Library(nil), items...)}
}

// List returns the registered libraries in registration order.
func (r *Registry) List() []*Library {
	return append([]*Library(nil), r.items...)
}

// FindByName looks up a library by its name.
func (r *Registry) FindByName(name string) (*Library, bool) {
	for _, item := range r.items {
		if item.Name() == name {
			return item, true
		}
	}
	return nil, false
}
