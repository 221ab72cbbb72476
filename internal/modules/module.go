// Package modules adapts funxy's directory-based package loader (§6.5) to
// this VM's value model: a Resolver that turns a module name into a
// compiled, executed *value.Map of its exports, with the same caching and
// cycle-detection shape as the teacher's Loader.
package modules

import "github.com/kotoscript/koto/internal/value"

// entry tracks one module's resolution state: loaded (Exports set), or
// still being loaded (used only for the cycle-detection message), matching
// funxy's loader.go Processing/LoadedModules pair.
type entry struct {
	exports *value.Map
	loading bool
}
