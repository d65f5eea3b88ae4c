package mdef

import (
	"mdefexpr/internal/diag"
	"mdefexpr/internal/exprlex"
)

// coalesceTableModels fuses a table-model reference of the form
// atable{...}, mtable{...}, or etable{...} -- which the scanner emits
// as several separate tokens -- into a single Word token whose text is
// the concatenation, e.g. "atable{path/file.mod}" (spec.md §4.2).
func coalesceTableModels(tokens []exprlex.Token) ([]exprlex.Token, error) {
	out := make([]exprlex.Token, 0, len(tokens))
	i := 0
	for i < len(tokens) {
		cur := tokens[i]
		if cur.Kind == exprlex.Word && isTableModelPrefix(cur.Text) {
			start := cur
			text := cur.Text
			i++
			if i >= len(tokens) || tokens[i].Kind != exprlex.LBrace {
				return nil, diag.NewUserErrorAt(cur.Offset, "missing '{' after table model reference: %s", cur.Text)
			}
			depth := 0
			for i < len(tokens) {
				t := tokens[i]
				if t.Kind == exprlex.LBrace {
					depth++
				} else if t.Kind == exprlex.RBrace {
					depth--
				}
				text += t.Text
				i++
				if depth == 0 {
					break
				}
			}
			if depth != 0 {
				return nil, diag.NewUserErrorAt(cur.Offset, "unbalanced braces in table model reference: %s", start.Text)
			}
			out = append(out, exprlex.Token{Kind: exprlex.Word, Text: text, Offset: start.Offset})
			continue
		}
		out = append(out, cur)
		i++
	}
	return out, nil
}

func isTableModelPrefix(s string) bool {
	return s == "atable" || s == "mtable" || s == "etable"
}
