package expr

import "math"

type builtin struct {
	arity int
	f1    func(float64) float64
	f2    func(float64, float64) float64
}

var builtins = map[string]builtin{
	"exp":   {arity: 1, f1: math.Exp},
	"log":   {arity: 1, f1: math.Log},
	"log10": {arity: 1, f1: math.Log10},
	"log2":  {arity: 1, f1: math.Log2},
	"sqrt":  {arity: 1, f1: math.Sqrt},
	"abs":   {arity: 1, f1: math.Abs},
	"sin":   {arity: 1, f1: math.Sin},
	"cos":   {arity: 1, f1: math.Cos},
	"tan":   {arity: 1, f1: math.Tan},
	"asin":  {arity: 1, f1: math.Asin},
	"acos":  {arity: 1, f1: math.Acos},
	"atan":  {arity: 1, f1: math.Atan},
	"sinh":  {arity: 1, f1: math.Sinh},
	"cosh":  {arity: 1, f1: math.Cosh},
	"tanh":  {arity: 1, f1: math.Tanh},
	"floor": {arity: 1, f1: math.Floor},
	"ceil":  {arity: 1, f1: math.Ceil},
	"sign":  {arity: 1, f1: sign},
	"min":   {arity: 2, f2: math.Min},
	"max":   {arity: 2, f2: math.Max},
	"pow":   {arity: 2, f2: math.Pow},
	"atan2": {arity: 2, f2: math.Atan2},
}

// aliases maps alternative spellings (LaTeX and sympy style) to builtins.
var aliases = map[string]string{
	"ln":     "log",
	"Abs":    "abs",
	"arcsin": "asin",
	"arccos": "acos",
	"arctan": "atan",
	"sgn":    "sign",
}

func lookupFunc(name string) (string, builtin, bool) {
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	b, ok := builtins[name]
	return name, b, ok
}

// IsFunction reports whether name is applied as a builtin function.
func IsFunction(name string) bool {
	_, _, ok := lookupFunc(name)
	return ok
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	case x == 0:
		return 0
	default:
		return math.NaN()
	}
}

func binop(op byte, a, b float64) float64 {
	switch op {
	case '+':
		return a + b
	case '-':
		return a - b
	case '*':
		return a * b
	case '/':
		return a / b
	default:
		return math.Pow(a, b)
	}
}
