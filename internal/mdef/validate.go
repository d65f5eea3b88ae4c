package mdef

import "mdefexpr/internal/diag"

// verifyInfix enforces spec.md §4.4: every function/model call is
// immediately followed by '(', comma counts match declared arities, and
// commas never appear nested inside a call's own sub-parentheses.
func (c *CompiledExpression) verifyInfix() error {
	nElems := len(c.infixElements)

	var commaCount, binaryCount, totXsModCommas, nXspecMods int
	var xsModCommas []int
	opIdx := 0

	for i := 0; i < nElems; i++ {
		switch c.infixElements[i] {
		case UFUNC, BFUNC:
			if i == nElems-1 || c.infixElements[i+1] != LPAREN {
				return diag.NewUserError("a '(' must follow the call to: %s", c.operators[opIdx])
			}
			if c.infixElements[i] == BFUNC {
				binaryCount++
			}
			opIdx++

		case XSMODEL, CONXSMODEL, TABLEMODEL:
			if i == nElems-1 || c.infixElements[i+1] != LPAREN {
				return diag.NewUserError("a '(' must follow the call to: %s", c.operators[opIdx])
			}
			name := c.operators[opIdx]
			opIdx++
			nXspecMods++

			nModCommas, err := c.expectedCommasFor(c.infixElements[i], name)
			if err != nil {
				return err
			}
			xsModCommas = append(xsModCommas, nModCommas)
			totXsModCommas += nModCommas

		case OPER:
			opIdx++
		case COMMA:
			commaCount++
		}
	}

	if commaCount > binaryCount+totXsModCommas {
		return diag.NewUserError("Extra commas detected in expression.\n" +
			"A common cause is that an unknown model name is included in the expression\n" +
			"or a function has been given the wrong number of arguments.")
	}

	if binaryCount > 0 || nXspecMods > 0 {
		ixsModFunc := 0
		idxElem := 0
		for idxElem < nElems {
			switch c.infixElements[idxElem] {
			case BFUNC, XSMODEL, CONXSMODEL, TABLEMODEL:
				newIdx, err := c.verifyFuncCommas(idxElem, &ixsModFunc, xsModCommas)
				if err != nil {
					return err
				}
				idxElem = newIdx
			}
			idxElem++
		}
	}

	return nil
}

// expectedCommasFor returns a binary function's, model's, or table
// model's expected comma count: 1 for a binary function; nPar-1 for a
// registered model (0 for a model without parameters); nPar-1 (with
// redshift/escale adjustment) for a
// table model.
func (c *CompiledExpression) expectedCommasFor(tag ElementTag, name string) (int, error) {
	if tag == TABLEMODEL {
		filename := tableModelFilename(name)
		info, err := c.tables.TableInfo(filename)
		if err != nil {
			return 0, diag.NewUserError("filename %s cannot be found.", filename)
		}
		nPars := info.NumberParams
		if info.IsRedshift {
			nPars++
		}
		if info.IsEscale {
			nPars++
		}
		return nPars - 1, nil
	}
	nPars, ok := c.reg.NumberParameters(name)
	if !ok {
		return 0, diag.NewUserError("unknown model referenced in expression: %s", name)
	}
	if nPars == 0 {
		return 0, nil
	}
	return nPars - 1, nil
}

// tableModelFilename extracts the filename from a coalesced table-model
// operator name of the form "atable{path/file.mod}".
func tableModelFilename(opName string) string {
	if len(opName) < 8 {
		return ""
	}
	return opName[7 : len(opName)-1]
}

// verifyFuncCommas recursively verifies the comma count and nesting of
// the call beginning at idxElem (a BFUNC/XSMODEL/CONXSMODEL/TABLEMODEL
// element whose next element is its LPAREN). It returns the index of
// the call's closing RPAREN.
func (c *CompiledExpression) verifyFuncCommas(idxElem int, ixsFunc *int, xsModCommas []int) (int, error) {
	var expected int
	switch c.infixElements[idxElem] {
	case BFUNC:
		expected = 1
	default:
		expected = xsModCommas[*ixsFunc]
		*ixsFunc++
	}

	parenCount := 1
	commasFound := 0
	idx := idxElem + 1

	for parenCount > 0 {
		idx++
		if idx >= len(c.infixElements) {
			return 0, diag.NewInternalError("malformed call while verifying comma nesting")
		}
		switch c.infixElements[idx] {
		case COMMA:
			commasFound++
			if commasFound > expected {
				return 0, diag.NewUserError("function called with too many arguments")
			}
			if parenCount != 1 {
				return 0, diag.NewUserError("misplaced comma in function call")
			}
		case BFUNC, XSMODEL, CONXSMODEL, TABLEMODEL:
			newIdx, err := c.verifyFuncCommas(idx, ixsFunc, xsModCommas)
			if err != nil {
				return 0, err
			}
			idx = newIdx
		case LPAREN:
			parenCount++
		case RPAREN:
			parenCount--
		}
	}

	if commasFound < expected {
		return 0, diag.NewUserError("function called with too few arguments")
	}
	return idx, nil
}
