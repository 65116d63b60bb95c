package extfunc

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// GradientSuffix is appended to a function name to form the symbol of its
// paired derivative. Loaders that cannot provide the derivative simply fail
// that lookup; the function then resolves without a gradient.
const GradientSuffix = "_grad"

var (
	// ErrNoLoader reports that a name is neither registered in-process nor
	// resolvable, because the registry was built without a loader.
	ErrNoLoader = errors.New("extfunc: no loader configured")

	// ErrSymbolType reports that a loader produced a symbol whose dynamic
	// type does not match the external calling convention.
	ErrSymbolType = errors.New("extfunc: symbol has wrong type")
)

// entry memoizes the outcome of resolving one name. The once latches the
// first attempt, successful or not, so a library is probed at most once per
// name for the registry's lifetime.
type entry struct {
	once sync.Once
	fn   Callable
	err  error
}

// Registry resolves external function names to callables. The zero value is
// not usable; construct with New.
type Registry struct {
	library string
	loader  Loader

	mu    sync.Mutex
	funcs map[string]*entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithLoader injects the symbol loader used for names that were not
// registered in-process.
func WithLoader(l Loader) Option {
	return func(r *Registry) { r.loader = l }
}

// WithLibrary sets the library passed to the loader on every lookup,
// typically a shared object path from configuration.
func WithLibrary(path string) Option {
	return func(r *Registry) { r.library = path }
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{funcs: make(map[string]*entry)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register installs an in-process callable under name. Names are
// single-owner: registering a name twice, or after it has already been
// resolved through the loader, is a programmer error and panics.
func (r *Registry) Register(name string, c Callable) {
	if name == "" {
		panic("extfunc: Register with empty name")
	}
	if c.Apply == nil {
		panic(fmt.Sprintf("extfunc: Register %q with nil Apply", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		panic(fmt.Sprintf("extfunc: function %q already registered", name))
	}

	slog.Debug("Registering external function.", "name", name, "has_gradient", c.Grad != nil)

	e := &entry{}
	e.once.Do(func() { e.fn = c })
	r.funcs[name] = e
}

// Resolve returns the callable bound to name. The first call per name
// performs exactly one load attempt through the injected loader, using the
// name itself as the symbol; every later call returns the memoized outcome,
// error included, without touching the loader again. Resolve is safe for
// concurrent use.
func (r *Registry) Resolve(name string) (Callable, error) {
	r.mu.Lock()
	e, ok := r.funcs[name]
	if !ok {
		e = &entry{}
		r.funcs[name] = e
	}
	r.mu.Unlock()

	e.once.Do(func() { e.fn, e.err = r.load(name) })
	if e.err != nil {
		return Callable{}, e.err
	}
	return e.fn, nil
}

// load performs the single external lookup for name: the forward symbol is
// mandatory, the paired gradient symbol optional.
func (r *Registry) load(name string) (Callable, error) {
	if r.loader == nil {
		return Callable{}, fmt.Errorf("%w: cannot resolve %q", ErrNoLoader, name)
	}

	sym, err := r.loader.Load(r.library, name)
	if err != nil {
		return Callable{}, fmt.Errorf("extfunc: resolve %q from %q: %w", name, r.library, err)
	}
	fn, ok := funcSymbol(sym)
	if !ok {
		return Callable{}, fmt.Errorf("%w: %q resolved to %T", ErrSymbolType, name, sym)
	}

	c := Callable{Apply: fn}
	gradName := name + GradientSuffix
	gsym, err := r.loader.Load(r.library, gradName)
	if err != nil {
		// A missing derivative is not an error; the function is treated
		// as a passthrough during backpropagation.
		slog.Debug("External function has no gradient symbol.", "name", name, "symbol", gradName)
		return c, nil
	}
	grad, ok := gradSymbol(gsym)
	if !ok {
		return Callable{}, fmt.Errorf("%w: %q resolved to %T", ErrSymbolType, gradName, gsym)
	}
	c.Grad = grad
	return c, nil
}
