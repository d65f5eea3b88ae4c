package mdef

import (
	"strconv"
	"strings"
)

// TraceElements renders a tag sequence (infix or postfix) as a
// human-readable string, pairing each name-owning tag with the operator,
// function, or model name it consumes from operators, in the order
// convertToInfix/convertToPostfix originally assigned them.
func TraceElements(tags []ElementTag, operators []string) string {
	var sb strings.Builder
	opPos := 0
	for i, t := range tags {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if ownsName(t) && opPos < len(operators) {
			sb.WriteString(t.String())
			sb.WriteByte('(')
			sb.WriteString(operators[opPos])
			sb.WriteByte(')')
			opPos++
		} else {
			sb.WriteString(t.String())
		}
	}
	return sb.String()
}

// chatterDumpThreshold is the minimum chatter level at which Dump
// produces output; it lies below the "try using chatter 40" hint
// XSPEC's mdefine error messages give users debugging a bad expression.
const chatterDumpThreshold = 25

// Dump renders the full compiled state -- infix/postfix element
// sequences, distinct parameter names, per-occurrence parameter
// indices and token positions, numerical constants, and operator
// names -- for diagnosing a misbehaving expression. It returns the
// empty string below chatterDumpThreshold.
func (c *CompiledExpression) Dump(chatter int) string {
	if chatter < chatterDumpThreshold {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("mdef expression: ")
	sb.WriteString(c.modelName)
	sb.WriteString(" (")
	sb.WriteString(c.componentType)
	sb.WriteString(")\n")

	sb.WriteString("  infix:      ")
	sb.WriteString(TraceElements(c.infixElements, c.operators))
	sb.WriteByte('\n')

	sb.WriteString("  postfix:    ")
	sb.WriteString(TraceElements(c.postfixElements, c.operators))
	sb.WriteByte('\n')

	sb.WriteString("  parameters: ")
	sb.WriteString(strings.Join(c.distinctParameterNames, ", "))
	sb.WriteByte('\n')

	sb.WriteString("  paramIdx:   ")
	for i, idx := range c.parameterIndices {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(c.distinctParameterNames[idx])
	}
	sb.WriteByte('\n')

	sb.WriteString("  paramToks:  ")
	for i, tokIdx := range c.parameterTokenIndices {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(tokIdx))
	}
	sb.WriteByte('\n')

	sb.WriteString("  consts:     ")
	for i, v := range c.numericalConsts {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	sb.WriteByte('\n')

	if len(c.usingOtherMdefs) > 0 {
		sb.WriteString("  depends on: ")
		first := true
		for name := range c.usingOtherMdefs {
			if !first {
				sb.WriteByte(' ')
			}
			first = false
			sb.WriteString(name)
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}
