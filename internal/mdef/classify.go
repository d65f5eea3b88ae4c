package mdef

import (
	"strings"

	"mdefexpr/internal/diag"
	"mdefexpr/internal/exprlex"
)

// convertToInfix walks the coalesced token stream and produces the
// infix element sequence plus the side-tables (spec.md §4.3): operator
// names, numerical constants, distinct parameter names, and per-PARAM
// indices.
func (c *CompiledExpression) convertToInfix(tokens []exprlex.Token) error {
	isCon := c.componentType == "con"

	for i, tok := range tokens {
		if tok.Kind == exprlex.EOF {
			break
		}

		var tag ElementTag
		switch tok.Kind {
		case exprlex.Number:
			tag = NUM
			c.numericalConsts = append(c.numericalConsts, tok.Value)

		case exprlex.Word:
			t, err := c.classifyWord(tok, isCon)
			if err != nil {
				return err
			}
			tag = t
			if tag == PARAM {
				c.parameterTokenIndices = append(c.parameterTokenIndices, i)
			}

		case exprlex.LParen, exprlex.LBrace:
			c.maybeInsertImpliedMult()
			tag = LPAREN

		case exprlex.RParen, exprlex.RBrace:
			tag = RPAREN

		case exprlex.Plus:
			tag = OPER
			c.operators = append(c.operators, "+")

		case exprlex.Minus:
			tag = OPER
			if isUnaryPosition(tokens, i) {
				c.operators = append(c.operators, "@")
			} else {
				c.operators = append(c.operators, "-")
			}

		case exprlex.Star:
			tag = OPER
			c.operators = append(c.operators, "*")

		case exprlex.Slash:
			tag = OPER
			c.operators = append(c.operators, "/")

		case exprlex.Caret:
			tag = OPER
			c.operators = append(c.operators, "^")

		case exprlex.Comma:
			tag = COMMA

		default:
			return diag.NewUserErrorAt(tok.Offset, "unrecognized symbol during infix parsing: %s", tok.Text)
		}

		c.infixElements = append(c.infixElements, tag)

		if tag == RPAREN && i+1 < len(tokens) && tokens[i+1].Kind == exprlex.Word {
			c.infixElements = append(c.infixElements, OPER)
			c.operators = append(c.operators, "*")
		}
	}

	return nil
}

// maybeInsertImpliedMult inserts an implied '*' OPER element before a
// '(' that directly follows a RPAREN, ENG, ENGC, PARAM, or NUM, with no
// explicit operator in between (spec.md §4.3).
func (c *CompiledExpression) maybeInsertImpliedMult() {
	if len(c.infixElements) == 0 {
		return
	}
	switch c.infixElements[len(c.infixElements)-1] {
	case RPAREN, ENG, ENGC, PARAM, NUM:
		c.infixElements = append(c.infixElements, OPER)
		c.operators = append(c.operators, "*")
	}
}

// isUnaryPosition reports whether the '-' token at index i should be
// reclassified as the unary '@' operator: it is the first token, or
// its predecessor token is '(', '{', '*', '/', or ','.
func isUnaryPosition(tokens []exprlex.Token, i int) bool {
	if i == 0 {
		return true
	}
	switch tokens[i-1].Kind {
	case exprlex.LParen, exprlex.LBrace, exprlex.Star, exprlex.Slash, exprlex.Comma:
		return true
	default:
		return false
	}
}

// classifyWord classifies a single word token per spec.md §4.3: energy
// variable, math function, registered spectral model, table model, or
// parameter name.
func (c *CompiledExpression) classifyWord(tok exprlex.Token, isCon bool) (ElementTag, error) {
	word := tok.Text

	if len(word) == 1 && (word[0] == 'e' || word[0] == 'E') {
		if isCon {
			return ENGC, nil
		}
		return ENG, nil
	}
	if isCon && (word == ".e" || word == ".E") {
		return ENG, nil
	}

	lcWord := strings.ToLower(word)
	if op, ok := c.ops.Lookup(lcWord); ok {
		c.operators = append(c.operators, lcWord)
		if op.Arity == 1 {
			return UFUNC, nil
		}
		return BFUNC, nil
	}

	if len(word) > 2 && c.reg.IsExactMatchName(word) {
		info, _ := c.reg.ComponentInfo(word)
		if info.IsUserDefined {
			c.usingOtherMdefs[strings.ToLower(info.Name)] = struct{}{}
		}
		if info.IsSpectrumDependent {
			c.callsSpecDependentFunctions = true
		}
		c.operators = append(c.operators, info.Name)
		if info.Type == "con" {
			return CONXSMODEL, nil
		}
		return XSMODEL, nil
	}

	if len(word) > 6 && isTableModelPrefix(word[:6]) {
		c.operators = append(c.operators, word)
		c.callsSpecDependentFunctions = true
		return TABLEMODEL, nil
	}

	if !(isLetterOrUnderscore(word[0]) || strings.Contains(word, ":")) {
		return 0, diag.NewUserErrorAt(tok.Offset, "illegal parameter name: %s", word)
	}

	idx := -1
	for i, name := range c.distinctParameterNames {
		if name == word {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = len(c.distinctParameterNames)
		c.distinctParameterNames = append(c.distinctParameterNames, word)
	}
	c.parameterIndices = append(c.parameterIndices, idx)
	return PARAM, nil
}

func isLetterOrUnderscore(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}
