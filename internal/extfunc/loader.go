package extfunc

import (
	"github.com/vk/tensorgrid/internal/tensor"
)

// Symbol is an opaque value produced by a Loader, mirroring the shape of
// plugin.Symbol. A symbol is usable only if its dynamic type matches the
// Function or Gradient signature.
type Symbol = any

// Loader resolves a named symbol from an external library. Implementations
// decide what "library" means: a shared object path, a catalog file, or an
// in-memory table in tests. Load is called at most once per symbol name per
// registry; it does not need to be safe for concurrent use.
type Loader interface {
	Load(library, symbol string) (Symbol, error)
}

// Function is the calling convention for an external forward routine. The
// view holds the node's input values laid out sample-major with the frame
// axis last; the function mutates it in place. A returned error aborts the
// evaluation that invoked it.
type Function func(v tensor.View) error

// Gradient is the calling convention for an external backward routine.
// grad holds the partial derivatives flowing into the node and is mutated
// in place; value holds the forward result the gradient is taken at.
type Gradient func(grad, value tensor.View) error

// Callable bundles a forward routine with its optional gradient. A nil
// Grad marks the function as non-differentiable; callers decide whether
// that means "identity" or "error" for their use.
type Callable struct {
	Apply Function
	Grad  Gradient
}

// Module is implemented by packages that contribute built-in functions.
// The application core collects modules and calls Register once during
// startup, before any graph runs.
type Module interface {
	Register(r *Registry)
}

// funcSymbol narrows a loaded symbol to the Function convention. Both the
// named type and the bare signature are accepted, so loaders may return
// plain function literals.
func funcSymbol(sym Symbol) (Function, bool) {
	switch f := sym.(type) {
	case Function:
		return f, true
	case func(tensor.View) error:
		return f, true
	}
	return nil, false
}

func gradSymbol(sym Symbol) (Gradient, bool) {
	switch g := sym.(type) {
	case Gradient:
		return g, true
	case func(grad, value tensor.View) error:
		return g, true
	}
	return nil, false
}
