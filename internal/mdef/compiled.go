// Package mdef implements the core expression compiler/evaluator: a
// shunting-yard-based compiler from a textual spectral-model expression
// to a postfix form, and a stack-machine evaluator over that form. This
// is the hard part the rest of the module (lexer, registry, table
// reader) exists to support.
package mdef

import (
	"mdefexpr/internal/exprlex"
	"mdefexpr/internal/operator"
	"mdefexpr/internal/registry"
	"mdefexpr/internal/tablemodel"
)

// CompiledExpression is the immutable (after Init) compiled form of a
// user expression, as described in spec.md §3.
type CompiledExpression struct {
	infixElements   []ElementTag
	postfixElements []ElementTag
	operators       []string
	numericalConsts []float64

	distinctParameterNames []string
	parameterIndices       []int
	parameterTokenIndices  []int

	eLow, eHigh float64
	componentType string
	modelName     string

	usingOtherMdefs             map[string]struct{}
	callsSpecDependentFunctions bool

	reg    registry.Registry
	tables tablemodel.Reader
	ops    *operator.Table
}

// New constructs an uninitialized compiled expression. Call Init to
// parse and compile exprString before evaluating.
func New(eLow, eHigh float64, componentType, modelName string, reg registry.Registry, tables tablemodel.Reader) *CompiledExpression {
	return &CompiledExpression{
		eLow:          eLow,
		eHigh:         eHigh,
		componentType: componentType,
		modelName:     modelName,
		usingOtherMdefs: make(map[string]struct{}),
		reg:    reg,
		tables: tables,
		ops:    operator.Shared(),
	}
}

// Clone returns a deep copy of c.
func (c *CompiledExpression) Clone() *CompiledExpression {
	cp := &CompiledExpression{
		eLow:                        c.eLow,
		eHigh:                       c.eHigh,
		componentType:               c.componentType,
		modelName:                   c.modelName,
		callsSpecDependentFunctions: c.callsSpecDependentFunctions,
		reg:                         c.reg,
		tables:                      c.tables,
		ops:                         c.ops,
	}
	cp.infixElements = append([]ElementTag(nil), c.infixElements...)
	cp.postfixElements = append([]ElementTag(nil), c.postfixElements...)
	cp.operators = append([]string(nil), c.operators...)
	cp.numericalConsts = append([]float64(nil), c.numericalConsts...)
	cp.distinctParameterNames = append([]string(nil), c.distinctParameterNames...)
	cp.parameterIndices = append([]int(nil), c.parameterIndices...)
	cp.parameterTokenIndices = append([]int(nil), c.parameterTokenIndices...)
	cp.usingOtherMdefs = make(map[string]struct{}, len(c.usingOtherMdefs))
	for k := range c.usingOtherMdefs {
		cp.usingOtherMdefs[k] = struct{}{}
	}
	return cp
}

// Init parses, validates, and compiles exprString. removeWhitespace, if
// set, strips whitespace from the source text before scanning, so
// characters separated only by whitespace scan as one token (e.g.
// "p 1" becomes the parameter "p1"); otherwise the scanner skips
// whitespace between tokens.
func (c *CompiledExpression) Init(exprString string, removeWhitespace bool) error {
	src := exprString
	if removeWhitespace {
		src = stripWhitespace(exprString)
	}

	scanner := exprlex.NewScanner(src)
	tokens, err := scanner.ScanTokens()
	if err != nil {
		return err
	}

	tokens, err = coalesceTableModels(tokens)
	if err != nil {
		return err
	}

	if err := c.convertToInfix(tokens); err != nil {
		return err
	}

	if err := c.verifyInfix(); err != nil {
		return err
	}

	c.convertToPostfix()

	return nil
}

func stripWhitespace(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// Accessors (spec.md §6).

func (c *CompiledExpression) DistinctParameterNames() []string {
	return append([]string(nil), c.distinctParameterNames...)
}

// ParameterIndices returns, for each PARAM element in postfix order, the
// index into DistinctParameterNames it refers to.
func (c *CompiledExpression) ParameterIndices() []int {
	return append([]int(nil), c.parameterIndices...)
}

func (c *CompiledExpression) UsingOtherMdefs() []string {
	names := make([]string, 0, len(c.usingOtherMdefs))
	for k := range c.usingOtherMdefs {
		names = append(names, k)
	}
	return names
}

func (c *CompiledExpression) CallsSpecDependentFunctions() bool { return c.callsSpecDependentFunctions }
func (c *CompiledExpression) ComponentType() string             { return c.componentType }
func (c *CompiledExpression) ELow() float64                     { return c.eLow }
func (c *CompiledExpression) EHigh() float64                    { return c.eHigh }
func (c *CompiledExpression) ModelName() string                 { return c.modelName }

// InfixElements and PostfixElements expose the compiled tag sequences,
// primarily for diagnostics and property tests (spec.md §8).
func (c *CompiledExpression) InfixElements() []ElementTag   { return append([]ElementTag(nil), c.infixElements...) }
func (c *CompiledExpression) PostfixElements() []ElementTag { return append([]ElementTag(nil), c.postfixElements...) }
func (c *CompiledExpression) Operators() []string           { return append([]string(nil), c.operators...) }
func (c *CompiledExpression) NumericalConsts() []float64    { return append([]float64(nil), c.numericalConsts...) }
