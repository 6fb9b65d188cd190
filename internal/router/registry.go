package router

import (
	"sort"

	"voice-assistant/internal/intent"
)

// Registry maps intents to handlers. It is populated at startup, before
// the router serves, and is not safe for concurrent registration.
type Registry struct {
	handlers map[intent.Intent]Handler
	owners   map[intent.Intent]string
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[intent.Intent]Handler),
		owners:   make(map[intent.Intent]string),
	}
}

// Register binds h to i. The last registration wins.
func (r *Registry) Register(i intent.Intent, h Handler) {
	r.handlers[i] = h
	r.owners[i] = "builtin"
}

// RegisterPlugin binds the plugin's Handle to every intent it declares,
// overriding earlier registrations.
func (r *Registry) RegisterPlugin(p Plugin) {
	for _, i := range p.Intents() {
		r.handlers[i] = p.Handle
		r.owners[i] = p.Name()
	}
}

func (r *Registry) Lookup(i intent.Intent) (Handler, bool) {
	h, ok := r.handlers[i]
	return h, ok
}

// Owner names who registered the handler for i ("builtin" or a plugin name).
func (r *Registry) Owner(i intent.Intent) string {
	return r.owners[i]
}

// Intents lists the registered intents in a stable order.
func (r *Registry) Intents() []intent.Intent {
	out := make([]intent.Intent, 0, len(r.handlers))
	for i := range r.handlers {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}
