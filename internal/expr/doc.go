// Package expr parses symbolic formulas and compiles them into numeric
// functions.
//
// A formula is parsed once into an immutable tree ([Parse]). Its free
// symbols ([FreeSymbols], [SortedSymbols]) are an unordered set; callers
// fix an ordering and compile against it ([Compile]). The resulting
// [Func] takes exactly one positional argument per symbol of that
// ordering and evaluates element-wise over series ([Func.Call]).
//
//	e, _ := expr.Parse(`c \cdot (1 - w - b \cdot \exp(h \cdot s) \cdot (1 + w))`)
//	names := expr.SortedSymbols(e) // [b c h s w]
//	f, _ := expr.Compile(e, names)
//	v, _ := f.Eval(1e-12, 0.3, 0.07, 400, 0.02)
//
// Non-finite values propagate as NaN or Inf; evaluation never fails at
// run time.
package expr
