// Package operator implements the process-wide operator table: the
// canonical arithmetic operators and elementary/transcendental math
// functions a compiled expression may invoke, along with their arities,
// in-place array appliers, and arithmetic operator precedences.
//
// The table is built once, lazily, on first use and never mutated
// afterward, mirroring the lifecycle the compiler requires: owned for
// the life of the process, read without locking once populated.
package operator

import (
	"math"
	"sync"
)

// Unary applies a scalar math function to every element of arr, in place.
type Unary func(arr []float64)

// Binary applies a scalar math function pairwise, writing the result
// into first. second is left untouched.
type Binary func(first, second []float64)

// Operator is a single entry in the table: either a Unary or a Binary
// applier is set, never both.
type Operator struct {
	Name   string
	Arity  int
	Unary  Unary
	Binary Binary
}

// Table is the immutable, process-wide operator/precedence map.
type Table struct {
	ops        map[string]*Operator
	precedence map[string]int
}

var (
	once       sync.Once
	shared     *Table
)

// Shared returns the process-wide operator table, building it on the
// first call.
func Shared() *Table {
	once.Do(func() {
		shared = build()
	})
	return shared
}

// Lookup returns the operator registered under the given canonical
// (lowercase, for math functions) name.
func (t *Table) Lookup(name string) (*Operator, bool) {
	op, ok := t.ops[name]
	return op, ok
}

// Precedence returns the arithmetic precedence of an operator name,
// used by the shunting-yard transformer.
func (t *Table) Precedence(name string) (int, bool) {
	p, ok := t.precedence[name]
	return p, ok
}

// Has reports whether name is a registered math operator or function,
// as opposed to a registered spectral model or table model name.
func (t *Table) Has(name string) bool {
	_, ok := t.ops[name]
	return ok
}

func applyUnary(arr []float64, f func(float64) float64) {
	for i := range arr {
		arr[i] = f(arr[i])
	}
}

func applyBinary(first, second []float64, f func(a, b float64) float64) {
	for i := range first {
		first[i] = f(first[i], second[i])
	}
}

const degToRad = math.Pi / 180.0

func legendre2(x float64) float64 { return 0.5 * (3*x*x - 1) }
func legendre3(x float64) float64 { return 0.5 * (5*x*x*x - 3*x) }
func legendre4(x float64) float64 {
	x2 := x * x
	return (35*x2*x2 - 30*x2 + 3) / 8
}
func legendre5(x float64) float64 {
	x2 := x * x
	return (63*x2*x2*x - 70*x2*x + 15*x) / 8
}

// heaviside is the unit step function: 0 for x<0, 1 for x>=0.
func heaviside(x float64) float64 {
	if x < 0 {
		return 0
	}
	return 1
}

func signFn(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// dim is the Fortran-style positive difference: max(a-b, 0).
func dim(a, b float64) float64 {
	d := a - b
	if d < 0 {
		return 0
	}
	return d
}

// boxcar(a,b) is 1 for 0<=a<=b, 0 otherwise.
func boxcar(a, b float64) float64 {
	if a >= 0 && a <= b {
		return 1
	}
	return 0
}

// smoothMinMaxEps smooths the kink in smin/smax the way a numerically
// stable "soft" selector would, so the function stays differentiable
// near a == b.
const smoothMinMaxEps = 1e-6

func smin(a, b float64) float64 {
	d := a - b
	return 0.5 * (a + b - math.Sqrt(d*d+smoothMinMaxEps))
}

func smax(a, b float64) float64 {
	d := a - b
	return 0.5 * (a + b + math.Sqrt(d*d+smoothMinMaxEps))
}

func mean(arr []float64) {
	if len(arr) == 0 {
		return
	}
	var sum float64
	for _, v := range arr {
		sum += v
	}
	avg := sum / float64(len(arr))
	for i := range arr {
		arr[i] = avg
	}
}

func build() *Table {
	t := &Table{
		ops:        make(map[string]*Operator),
		precedence: make(map[string]int),
	}

	addUnary := func(name string, f func(float64) float64) {
		t.ops[name] = &Operator{Name: name, Arity: 1, Unary: func(arr []float64) { applyUnary(arr, f) }}
	}
	addBinary := func(name string, f func(a, b float64) float64) {
		t.ops[name] = &Operator{Name: name, Arity: 2, Binary: func(a, b []float64) { applyBinary(a, b, f) }}
	}

	// Arithmetic operators. '#' is the internal convolution-multiply
	// rewrite of '*'; it shares '*''s precedence but is handled
	// specially by the evaluator, never applied here directly.
	addBinary("+", func(a, b float64) float64 { return a + b })
	addBinary("-", func(a, b float64) float64 { return a - b })
	addBinary("*", func(a, b float64) float64 { return a * b })
	addBinary("/", func(a, b float64) float64 { return a / b })
	addBinary("^", func(a, b float64) float64 { return math.Pow(a, b) })
	addUnary("@", func(a float64) float64 { return -a })

	t.precedence["+"] = 0
	t.precedence["-"] = 0
	t.precedence["@"] = 0
	t.precedence["*"] = 1
	t.precedence["/"] = 1
	t.precedence["#"] = 1
	t.precedence["^"] = 2

	// Unary math functions.
	addUnary("exp", math.Exp)
	addUnary("sin", math.Sin)
	addUnary("sind", func(x float64) float64 { return math.Sin(x * degToRad) })
	addUnary("cos", math.Cos)
	addUnary("cosd", func(x float64) float64 { return math.Cos(x * degToRad) })
	addUnary("tan", math.Tan)
	addUnary("tand", func(x float64) float64 { return math.Tan(x * degToRad) })
	addUnary("sinh", math.Sinh)
	addUnary("sinhd", func(x float64) float64 { return math.Sinh(x * degToRad) })
	addUnary("cosh", math.Cosh)
	addUnary("coshd", func(x float64) float64 { return math.Cosh(x * degToRad) })
	addUnary("tanh", math.Tanh)
	addUnary("tanhd", func(x float64) float64 { return math.Tanh(x * degToRad) })
	addUnary("log", math.Log10)
	addUnary("ln", math.Log)
	addUnary("sqrt", math.Sqrt)
	addUnary("abs", math.Abs)
	addUnary("int", math.Trunc)
	addUnary("sign", signFn)
	addUnary("heaviside", heaviside)
	addUnary("asin", math.Asin)
	addUnary("acos", math.Acos)
	addUnary("atan", math.Atan)
	addUnary("asinh", math.Asinh)
	addUnary("acosh", math.Acosh)
	addUnary("atanh", math.Atanh)
	addUnary("erf", math.Erf)
	addUnary("erfc", math.Erfc)
	addUnary("gamma", math.Gamma)
	addUnary("legendre2", legendre2)
	addUnary("legendre3", legendre3)
	addUnary("legendre4", legendre4)
	addUnary("legendre5", legendre5)
	t.ops["mean"] = &Operator{Name: "mean", Arity: 1, Unary: mean}

	// Binary math functions.
	addBinary("max", math.Max)
	addBinary("min", math.Min)
	addBinary("atan2", math.Atan2)
	addBinary("dim", dim)
	addBinary("smin", smin)
	addBinary("smax", smax)
	addBinary("boxcar", boxcar)

	return t
}
