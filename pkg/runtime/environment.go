package runtime

// Environment is one variable scope. The interpreter keeps a persistent
// global scope for the whole run and pushes a fresh frame per function
// call; lookup falls back from the frame to the globals. There are no
// closures, so the chain is never deeper than two.
type Environment struct {
	values map[string]Value
	parent *Environment
}

func NewEnvironment(parent *Environment) *Environment {
	return &Environment{values: map[string]Value{}, parent: parent}
}

// Define binds the name in this scope, shadowing any outer binding.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
}

// Get resolves the name in this scope, then outward.
func (e *Environment) Get(name string) (Value, error) {
	for env := e; env != nil; env = env.parent {
		if value, ok := env.values[name]; ok {
			return value, nil
		}
	}
	return nil, Errorf("variable '%s' used before definition", name)
}

// Has reports whether the name resolves anywhere in the chain.
func (e *Environment) Has(name string) bool {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.values[name]; ok {
			return true
		}
	}
	return false
}

// Snapshot copies this scope's own bindings, ignoring the parent. The
// debugger's step hook receives these copies.
func (e *Environment) Snapshot() map[string]Value {
	out := make(map[string]Value, len(e.values))
	for name, value := range e.values {
		out[name] = value
	}
	return out
}
