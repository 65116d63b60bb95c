package testutil

import "github.com/vk/tensorgrid/internal/extfunc"

// FuncModule is a test helper for easily creating a mock module that
// registers a single callable under a fixed name.
type FuncModule struct {
	Name     string
	Callable extfunc.Callable
}

// Register implements the extfunc.Module interface.
func (m *FuncModule) Register(r *extfunc.Registry) {
	if m.Name != "" {
		r.Register(m.Name, m.Callable)
	}
}
