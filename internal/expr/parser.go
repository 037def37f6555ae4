package expr

import (
	"math"
	"strings"
)

// Greek letter commands accepted as symbol names.
var greek = map[string]bool{
	"alpha": true, "beta": true, "gamma": true, "delta": true, "epsilon": true,
	"varepsilon": true, "zeta": true, "eta": true, "theta": true, "vartheta": true,
	"iota": true, "kappa": true, "lambda": true, "mu": true, "nu": true, "xi": true,
	"rho": true, "varrho": true, "sigma": true, "tau": true, "upsilon": true,
	"phi": true, "varphi": true, "chi": true, "psi": true, "omega": true,
	"Gamma": true, "Delta": true, "Theta": true, "Lambda": true, "Xi": true,
	"Sigma": true, "Phi": true, "Psi": true, "Omega": true,
}

// Parse turns a formula into an expression tree. Plain infix syntax and
// the common LaTeX subset (\cdot, \frac, \sqrt, \exp, ^{...}, _{...},
// \left( \right), Greek letters) are both accepted.
//
// Only builtin functions may be applied: "w(1-w)" is rejected rather than
// read as an undefined function w, since the intended meaning is almost
// always "w*(1-w)".
func Parse(formula string) (Expr, error) {
	toks, err := lex(formula)
	if err != nil {
		return nil, err
	}
	p := &parser{src: formula, toks: toks}
	if p.peek().kind == tokEOF {
		return nil, p.errorf(p.peek(), "empty formula")
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected "+describe(t))
	}
	return e, nil
}

// MustParse is Parse for formulas known to be valid; it panics otherwise.
func MustParse(formula string) Expr {
	e, err := Parse(formula)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	src  string
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == text
}

func (p *parser) expect(text string) error {
	t := p.next()
	if t.kind != tokOp || t.text != text {
		return p.errorf(t, "expected "+text+", found "+describe(t))
	}
	return nil
}

func (p *parser) errorf(t token, msg string) error {
	return &ParseError{Formula: p.src, Pos: t.pos, Msg: msg}
}

func describe(t token) string {
	switch t.kind {
	case tokEOF:
		return "end of formula"
	case tokCmd:
		return "\\" + t.text
	default:
		return "\"" + t.text + "\""
	}
}

func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.next().text[0]
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) term() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		var op byte
		switch {
		case p.isOp("*") || p.isOp("/"):
			op = p.next().text[0]
		case p.startsOperand():
			op = '*'
		default:
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: right}
	}
}

// startsOperand reports whether the next token can begin an implicit
// multiplication operand.
func (p *parser) startsOperand() bool {
	t := p.peek()
	switch t.kind {
	case tokNum, tokIdent, tokCmd:
		return true
	case tokOp:
		return t.text == "(" || t.text == "{" || t.text == "["
	}
	return false
}

func (p *parser) unary() (Expr, error) {
	if p.isOp("-") {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if n, ok := x.(*Num); ok {
			return &Num{Value: -n.Value}, nil
		}
		return &Neg{X: x}, nil
	}
	if p.isOp("+") {
		p.next()
		return p.unary()
	}
	return p.power()
}

func (p *parser) power() (Expr, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if !p.isOp("^") {
		return base, nil
	}
	p.next()
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: '^', L: base, R: exp}, nil
}

func (p *parser) primary() (Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokNum:
		p.next()
		return &Num{Value: t.num}, nil

	case tokIdent:
		p.next()
		return p.identifier(t, t.text, false)

	case tokCmd:
		p.next()
		return p.command(t)

	case tokOp:
		switch t.text {
		case "(":
			return p.group("(", ")")
		case "{":
			return p.group("{", "}")
		case "[":
			return p.group("[", "]")
		case "|":
			p.next()
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expect("|"); err != nil {
				return nil, err
			}
			return &Call{Fn: "abs", Args: []Expr{x}}, nil
		}
	}
	return nil, p.errorf(t, "unexpected "+describe(t))
}

func (p *parser) group(open, close string) (Expr, error) {
	if err := p.expect(open); err != nil {
		return nil, err
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(close); err != nil {
		return nil, err
	}
	return e, nil
}

// identifier resolves a name token into a symbol, constant or call.
// Command-spelled names (\alpha, \mathrm{k}) may be followed by a
// parenthesised factor; bare names may not.
func (p *parser) identifier(t token, name string, latex bool) (Expr, error) {
	if fn, b, ok := lookupFunc(name); ok {
		return p.call(t, fn, b, latex)
	}
	if p.isOp("_") {
		sub, err := p.subscript()
		if err != nil {
			return nil, err
		}
		name += "_" + sub
	}
	if p.isOp("(") && !latex {
		return nil, p.errorf(t, "unknown function \""+name+"\"; write "+name+"*(...) for multiplication")
	}
	if name == "pi" {
		return &Num{Value: math.Pi}, nil
	}
	return &Sym{Name: name}, nil
}

func (p *parser) subscript() (string, error) {
	p.next()
	if p.isOp("{") {
		p.next()
		var sb strings.Builder
		for !p.isOp("}") {
			t := p.next()
			switch t.kind {
			case tokNum, tokIdent:
				sb.WriteString(t.text)
			case tokCmd:
				if !greek[t.text] {
					return "", p.errorf(t, "unsupported subscript "+describe(t))
				}
				sb.WriteString(t.text)
			default:
				return "", p.errorf(t, "unsupported subscript "+describe(t))
			}
		}
		p.next()
		if sb.Len() == 0 {
			return "", p.errorf(p.peek(), "empty subscript")
		}
		return sb.String(), nil
	}
	t := p.next()
	if t.kind != tokNum && t.kind != tokIdent {
		return "", p.errorf(t, "unsupported subscript "+describe(t))
	}
	return t.text, nil
}

func (p *parser) call(t token, fn string, b builtin, latex bool) (Expr, error) {
	var args []Expr
	switch {
	case p.isOp("("):
		p.next()
		for {
			a, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if !p.isOp(",") {
				break
			}
			p.next()
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
	case latex && p.isOp("{"):
		a, err := p.group("{", "}")
		if err != nil {
			return nil, err
		}
		args = []Expr{a}
	case latex && b.arity == 1:
		a, err := p.power()
		if err != nil {
			return nil, err
		}
		args = []Expr{a}
	default:
		return nil, p.errorf(t, "function \""+fn+"\" requires an argument list")
	}
	if len(args) != b.arity {
		return nil, p.errorf(t, "function \""+fn+"\" takes "+plural(b.arity, "argument"))
	}
	return &Call{Fn: fn, Args: args}, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return string(rune('0'+n)) + " " + word + "s"
}

func (p *parser) command(t token) (Expr, error) {
	switch t.text {
	case "frac", "dfrac", "tfrac":
		num, err := p.group("{", "}")
		if err != nil {
			return nil, err
		}
		den, err := p.group("{", "}")
		if err != nil {
			return nil, err
		}
		return &Binary{Op: '/', L: num, R: den}, nil

	case "sqrt":
		var index Expr
		if p.isOp("[") {
			var err error
			if index, err = p.group("[", "]"); err != nil {
				return nil, err
			}
		}
		arg, err := p.group("{", "}")
		if err != nil {
			return nil, err
		}
		if index == nil {
			return &Call{Fn: "sqrt", Args: []Expr{arg}}, nil
		}
		return &Binary{Op: '^', L: arg, R: &Binary{Op: '/', L: &Num{Value: 1}, R: index}}, nil

	case "pi":
		return &Num{Value: math.Pi}, nil

	case "mathrm", "operatorname", "text", "mathit":
		if err := p.expect("{"); err != nil {
			return nil, err
		}
		name := p.next()
		if name.kind != tokIdent {
			return nil, p.errorf(name, "expected a name, found "+describe(name))
		}
		if err := p.expect("}"); err != nil {
			return nil, err
		}
		return p.identifier(name, name.text, true)
	}

	if fn, b, ok := lookupFunc(t.text); ok {
		return p.call(t, fn, b, true)
	}
	if greek[t.text] {
		return p.identifier(t, t.text, true)
	}
	return nil, p.errorf(t, "unsupported command "+describe(t))
}
