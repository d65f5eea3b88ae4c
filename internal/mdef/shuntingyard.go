package mdef

// stackEntry is a shunting-yard operator-stack entry: a precedence
// paired with the owning operator/function name. Precedence -1 marks a
// function-call left-bracket (name = the function) or a stand-alone
// left-bracket (name = " ").
type stackEntry struct {
	prec int
	name string
}

// convertToPostfix lowers the infix element sequence to postfix via a
// shunting-yard variant with function-call bracketing (spec.md §4.5),
// rewriting the first '*' met after a convolution-model call's
// closing paren into the internal '#' operator.
func (c *CompiledExpression) convertToPostfix() {
	inputOperators := append([]string(nil), c.operators...)
	var postfix []ElementTag
	var tmpOperators []string
	var stack []stackEntry

	opPos := 0
	isPrevConv := false

	popOne := func() stackEntry {
		n := len(stack) - 1
		e := stack[n]
		stack = stack[:n]
		return e
	}
	push := func(e stackEntry) { stack = append(stack, e) }

	nElems := len(c.infixElements)
	for i := 0; i < nElems; i++ {
		switch c.infixElements[i] {

		case OPER:
			curOp := inputOperators[opPos]
			if curOp == "*" && isPrevConv {
				curOp = "#"
				isPrevConv = false
			}
			prec, _ := c.ops.Precedence(curOp)
			// A prefix '@' pops nothing; once stacked, it is popped by
			// every binary operator except '^'.
			if len(stack) > 0 && curOp != "^" && curOp != "@" {
				for len(stack) > 0 && (stack[len(stack)-1].prec >= prec || stack[len(stack)-1].name == "@") {
					top := popOne()
					postfix = append(postfix, OPER)
					tmpOperators = append(tmpOperators, top.name)
				}
			}
			push(stackEntry{prec: prec, name: curOp})
			opPos++

		case UFUNC, BFUNC, XSMODEL, CONXSMODEL, TABLEMODEL:
			name := inputOperators[opPos]
			push(stackEntry{prec: -1, name: name})
			opPos++
			i++ // skip the LPAREN the validator guarantees follows

		case LPAREN:
			push(stackEntry{prec: -1, name: " "})

		case RPAREN:
			for {
				top := popOne()
				if top.name != " " {
					postfix = append(postfix, OPER)
					tmpOperators = append(tmpOperators, top.name)
					if top.prec == -1 && c.isConvolutionModel(top.name) {
						isPrevConv = true
					}
				}
				if top.prec == -1 || len(stack) == 0 {
					break
				}
			}

		case COMMA:
			for len(stack) > 0 && stack[len(stack)-1].prec != -1 {
				top := popOne()
				postfix = append(postfix, OPER)
				tmpOperators = append(tmpOperators, top.name)
			}

		default:
			postfix = append(postfix, c.infixElements[i])
		}
	}

	for len(stack) > 0 {
		top := popOne()
		postfix = append(postfix, OPER)
		tmpOperators = append(tmpOperators, top.name)
	}

	c.postfixElements = postfix
	c.operators = tmpOperators
}

// isConvolutionModel reports whether name refers to a registered model
// of declared type "con".
func (c *CompiledExpression) isConvolutionModel(name string) bool {
	info, ok := c.reg.ComponentInfo(name)
	return ok && info.Type == "con"
}
