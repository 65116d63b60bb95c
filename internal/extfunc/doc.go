// Package extfunc provides the external function registry: the bridge
// between graph nodes and numeric routines supplied at runtime rather than
// compiled into the engine.
//
// A Registry maps function names to callables. Entries arrive two ways:
// in-process modules register Go implementations at startup, and unknown
// names are resolved lazily through an injected symbol Loader on first use.
// Either way a name is resolved exactly once for the registry's lifetime;
// the outcome (callable or failure) is memoized and entries are never
// evicted. Registries are safe for concurrent use by multiple graphs.
package extfunc
