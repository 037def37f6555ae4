package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/symplot/internal/dynamo"
)

var methods = map[string]func() Method{
	"RK23":   func() Method { return NewRK23() },
	"RK45":   func() Method { return NewRK45() },
	"DOP853": func() Method { return NewDOP853() },
	"Radau":  func() Method { return NewRadau() },
	"BDF":    func() Method { return NewBDF() },
	"LSODA":  func() Method { return NewLSODA() },
}

// Lookup returns the method registered under name. Names are case
// sensitive and match the scipy spellings.
func Lookup(name string) (Method, error) {
	fn, ok := methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", dynamo.ErrUnknownMethod, name, Names())
	}
	return fn(), nil
}

// Known reports whether name is a registered method.
func Known(name string) bool {
	_, ok := methods[name]
	return ok
}

// Names lists the registered methods in lexical order.
func Names() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
