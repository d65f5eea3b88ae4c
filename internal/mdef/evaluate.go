package mdef

import (
	"math"

	"mdefexpr/internal/diag"
)

// markedArray couples a per-bin flux array with whether it already
// carries a factor of 1/binWidth contributed by an additive component,
// mirroring the original evaluator's (RealArray, bool) stack entry.
// The convolution operator ('#') needs to know this to undo the
// division before handing the array to the convolution model and redo
// it afterward.
type markedArray struct {
	data    []float64
	divided bool
}

// Evaluate computes the flux (and flux error) this compiled expression
// describes, per spec.md §4.6 and §6. For a convolution component
// (ComponentType() == "con"), flux is both input -- the array being
// convolved, supplied by whatever upstream component feeds this one in
// the model chain -- and output; its length must already be nBins.
// For every other component type flux is output only and the supplied
// slice is ignored. sink receives non-fatal warnings (e.g. a reference
// to a model that no longer exists); it may be nil.
func (c *CompiledExpression) Evaluate(energies, params []float64, spectrumNumber int, flux []float64, initString string, sink *diag.Sink) (outFlux, outFluxErr []float64, err error) {
	if len(energies) < 2 {
		return nil, nil, diag.NewUserError("energy array must be at least size 2")
	}

	if c.componentType == "con" {
		nBins := len(energies) - 1
		if len(flux) != nBins {
			return nil, nil, diag.NewUserError("flux array size mismatch in mdef convolve function")
		}
		if c.isSingleConvolve() {
			return c.evaluateSingleConvolve(energies, params, spectrumNumber, flux, initString)
		}
		return c.evaluateConvolution(energies, params, spectrumNumber, flux, initString, sink)
	}

	return c.evaluateOrdinary(energies, params, spectrumNumber, initString, sink)
}

func broadcast(v float64, n int) []float64 {
	arr := make([]float64, n)
	for i := range arr {
		arr[i] = v
	}
	return arr
}

// evaluateOrdinary implements spec.md §4.6.1: a single pass over the
// postfix element sequence, evaluating whole-array math over nBins-long
// arrays, with registered models invoked directly except for
// convolution models, whose invocation is deferred past the operand
// they convolve via the internal '#' operator.
func (c *CompiledExpression) evaluateOrdinary(energies, params []float64, spectrumNumber int, initString string, sink *diag.Sink) (flux, fluxErr []float64, err error) {
	nBins := len(energies) - 1
	avgEngs := make([]float64, nBins)
	binWidths := make([]float64, nBins)
	for i := 0; i < nBins; i++ {
		avgEngs[i] = (energies[i+1] + energies[i]) / 2
		binWidths[i] = math.Abs(energies[i+1] - energies[i])
	}

	var stack []markedArray
	var conParams [][]float64
	var conFuncs []registryCallable

	numPos, parPos, opPos := 0, 0, 0

	for _, tag := range c.postfixElements {
		switch tag {

		case ENG, ENGC:
			stack = append(stack, markedArray{data: append([]float64(nil), avgEngs...)})

		case NUM:
			stack = append(stack, markedArray{data: broadcast(c.numericalConsts[numPos], nBins)})
			numPos++

		case PARAM:
			stack = append(stack, markedArray{data: broadcast(params[c.parameterIndices[parPos]], nBins)})
			parPos++

		case OPER:
			name := c.operators[opPos]

			switch {
			case name == "#":
				if len(conParams) == 0 || len(conFuncs) == 0 {
					return nil, nil, diag.NewInternalError("mdefine operation with convolution model has empty stack")
				}
				if len(stack) == 0 {
					return nil, nil, diag.NewUserError("trying to access empty stack; likely error in mdefine expression")
				}
				top := &stack[len(stack)-1]
				p := conParams[len(conParams)-1]
				conParams = conParams[:len(conParams)-1]
				fn := conFuncs[len(conFuncs)-1]
				conFuncs = conFuncs[:len(conFuncs)-1]

				operand := top.data
				if top.divided {
					operand = multiplyElementwise(operand, binWidths)
				}
				modFlux, _, callErr := fn(energies, p, spectrumNumber, initString, operand)
				if callErr != nil {
					return nil, nil, callErr
				}
				if top.divided {
					modFlux = divideElementwise(modFlux, binWidths)
				}
				top.data = modFlux

			case c.ops.Has(name):
				op, _ := c.ops.Lookup(name)
				if op.Arity == 1 {
					if len(stack) == 0 {
						return nil, nil, diag.NewUserError("trying to access empty stack; likely error in mdefine expression")
					}
					op.Unary(stack[len(stack)-1].data)
				} else {
					if len(stack) < 2 {
						return nil, nil, diag.NewUserError("too few arguments while evaluating mdefine expression")
					}
					second := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					first := &stack[len(stack)-1]
					op.Binary(first.data, second.data)
					first.divided = first.divided || second.divided
				}

			case c.reg.HasFunctionPointer(name):
				nPars, _ := c.reg.NumberParameters(name)
				if len(stack) < nPars {
					return nil, nil, diag.NewInternalError("stack underflow popping model parameters")
				}
				p := make([]float64, nPars)
				for iparam := 0; iparam < nPars; iparam++ {
					popped := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					p[nPars-iparam-1] = popped.data[0]
				}

				info, _ := c.reg.ComponentInfo(name)
				if info.Type == "con" && !info.IsUserDefined {
					conParams = append(conParams, p)
					fn, _ := c.reg.FunctionPointer(name)
					conFuncs = append(conFuncs, fn)
					break
				}

				fn, _ := c.reg.FunctionPointer(name)
				modFlux, _, callErr := fn(energies, p, spectrumNumber, initString, nil)
				if callErr != nil {
					return nil, nil, callErr
				}
				divided := false
				if !info.IsUserDefined {
					if info.Type == "add" {
						modFlux = divideElementwise(modFlux, binWidths)
						divided = true
					}
				} else if info.Type != "mul" && info.Type != "pileup" {
					modFlux = divideElementwise(modFlux, binWidths)
					divided = true
				}
				stack = append(stack, markedArray{data: modFlux, divided: divided})

			case len(name) > 6 && isTableModelPrefix(name[:6]):
				filename := tableModelFilename(name)
				info, infoErr := c.tables.TableInfo(filename)
				if infoErr != nil {
					return nil, nil, diag.NewUserError("filename %s cannot be found", filename)
				}
				nPars := info.NumberParams
				if info.IsRedshift {
					nPars++
				}
				if info.IsEscale {
					nPars++
				}
				if len(stack) < nPars {
					return nil, nil, diag.NewInternalError("stack underflow popping table model parameters")
				}
				p := make([]float64, nPars)
				for iparam := 0; iparam < nPars; iparam++ {
					popped := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					p[nPars-iparam-1] = popped.data[0]
				}
				tableType := "add"
				switch name[0] {
				case 'm':
					tableType = "mul"
				case 'e':
					tableType = "exp"
				}
				modFlux, _, tblErr := c.tables.TableInterpolate(energies, p, filename, spectrumNumber, initString, tableType, false)
				if tblErr != nil {
					return nil, nil, tblErr
				}
				divided := false
				if tableType == "add" {
					modFlux = divideElementwise(modFlux, binWidths)
					divided = true
				}
				stack = append(stack, markedArray{data: modFlux, divided: divided})

			default:
				sink.Warn("attempt to call unknown model %s. Did you delete a defined model with that name?", name)
				stack = append(stack, markedArray{data: broadcast(0, nBins)})
			}

			opPos++

		default:
			return nil, nil, diag.NewInternalError("unrecognized element type in evaluator: %s", tag)
		}
	}

	if len(stack) != 1 {
		return nil, nil, diag.NewInternalError("evaluator stack should be of size 1 at end")
	}

	flux = stack[0].data
	if c.componentType == "add" {
		flux = multiplyElementwise(flux, binWidths)
	}
	return flux, make([]float64, nBins), nil
}

// registryCallable avoids importing the registry package's exported
// Callable name twice under two names in this file; it is identical to
// registry.Callable.
type registryCallable = func(energies []float64, params []float64, spectrumNumber int, initString string, inputFlux []float64) (flux, fluxErr []float64, err error)

func multiplyElementwise(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}

func divideElementwise(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] / b[i]
	}
	return out
}

// evaluateConvolution implements spec.md §4.6.2: the general convolution
// path, evaluated one output bin at a time with ENGC bound to the
// cross-bin energy difference avgEngs[i]-avgEngs[j]. Unlike the
// original XSPEC routine this resolves Open Question #1 with a single
// division by binWidths of each nested add/con/mix sub-model result
// rather than two: the original C++ divides modFlux by binWidths once
// inside the per-subtype branch and unconditionally again just before
// the push, which leaves an extra factor of 1/binWidth on the result
// whenever a nested add/con/mix component appears inside a convolution
// expression.
func (c *CompiledExpression) evaluateConvolution(energies, params []float64, spectrumNumber int, flux []float64, initString string, sink *diag.Sink) (outFlux, outFluxErr []float64, err error) {
	nBins := len(energies) - 1
	avgEngs := make([]float64, nBins)
	binWidths := make([]float64, nBins)
	for i := 0; i < nBins; i++ {
		avgEngs[i] = (energies[i+1] + energies[i]) / 2
		binWidths[i] = math.Abs(energies[i+1] - energies[i])
	}

	constArrays := make([][]float64, len(c.numericalConsts))
	for i, v := range c.numericalConsts {
		constArrays[i] = broadcast(v, nBins)
	}
	paramArrays := make([][]float64, len(c.parameterIndices))
	for i, idx := range c.parameterIndices {
		paramArrays[i] = broadcast(params[idx], nBins)
	}

	convFlux := make([]float64, nBins)

	for iBin := 0; iBin < nBins; iBin++ {
		convEngs := make([]float64, nBins)
		for j := range convEngs {
			convEngs[j] = avgEngs[iBin] - avgEngs[j]
		}

		var stack [][]float64
		numPos, parPos, opPos := 0, 0, 0

		for iElem := 0; iElem < len(c.postfixElements); iElem++ {
			switch c.postfixElements[iElem] {

			case ENG:
				stack = append(stack, append([]float64(nil), avgEngs...))
			case ENGC:
				stack = append(stack, append([]float64(nil), convEngs...))
			case NUM:
				stack = append(stack, append([]float64(nil), constArrays[numPos]...))
				numPos++
			case PARAM:
				stack = append(stack, append([]float64(nil), paramArrays[parPos]...))
				parPos++

			case OPER:
				name := c.operators[opPos]

				switch {
				case c.ops.Has(name):
					op, _ := c.ops.Lookup(name)
					if op.Arity == 1 {
						if len(stack) == 0 {
							return nil, nil, diag.NewInternalError("trying to access empty stack in convolution evaluator")
						}
						op.Unary(stack[len(stack)-1])
					} else {
						if len(stack) < 2 {
							return nil, nil, diag.NewInternalError("too few args in convolution evaluator stack")
						}
						second := stack[len(stack)-1]
						stack = stack[:len(stack)-1]
						first := stack[len(stack)-1]
						op.Binary(first, second)
					}

				case c.reg.HasFunctionPointer(name):
					nPars, _ := c.reg.NumberParameters(name)
					if len(stack) < nPars {
						return nil, nil, diag.NewInternalError("stack underflow popping model parameters")
					}
					p := make([]float64, nPars)
					for iparam := 0; iparam < nPars; iparam++ {
						popped := stack[len(stack)-1]
						stack = stack[:len(stack)-1]
						p[nPars-iparam-1] = popped[0]
					}

					info, _ := c.reg.ComponentInfo(name)
					subType := info.Type

					var inputFlux []float64
					if subType == "con" {
						if len(stack) == 0 {
							return nil, nil, diag.NewUserError("attempt to use a convolution component with nothing to operate on")
						}
						operand := stack[len(stack)-1]
						stack = stack[:len(stack)-1]
						inputFlux = multiplyElementwise(operand, binWidths)
					}

					fn, _ := c.reg.FunctionPointer(name)
					modFlux, _, callErr := fn(energies, p, spectrumNumber, initString, inputFlux)
					if callErr != nil {
						return nil, nil, callErr
					}

					divide := false
					if !info.IsUserDefined {
						if subType == "con" || subType == "add" || subType == "mix" {
							divide = true
						}
					} else if subType != "mul" && subType != "pileup" {
						divide = true
					}
					if divide {
						modFlux = divideElementwise(modFlux, binWidths)
					}
					stack = append(stack, modFlux)

					if c.componentType == "con" {
						opPos++
						iElem++
					}

				default:
					sink.Warn("attempt to call unknown model %s. Did you delete a defined model with that name?", name)
					stack = append(stack, broadcast(0, nBins))
				}

				opPos++

			default:
				return nil, nil, diag.NewInternalError("unrecognized element type in convolution evaluator: %s", c.postfixElements[iElem])
			}
		}

		if len(stack) != 1 {
			return nil, nil, diag.NewInternalError("convolution evaluator stack should be of size 1 at end")
		}

		fact := stack[0]
		var sum float64
		for j := 0; j < nBins; j++ {
			sum += flux[j] * fact[j] * binWidths[iBin]
		}
		convFlux[iBin] = sum
	}

	return convFlux, make([]float64, nBins), nil
}

// evaluateSingleConvolve implements spec.md §4.6.3: the fast path for
// an expression whose last postfix element is a single convolution
// model call and whose every other element evaluates to a plain scalar
// (no ENG/ENGC). Every preceding element is reduced over a size-1
// array, then the convolution model is invoked once against the whole
// input flux -- no bin-by-bin convolution sum is needed.
func (c *CompiledExpression) evaluateSingleConvolve(energies, params []float64, spectrumNumber int, flux []float64, initString string) (outFlux, outFluxErr []float64, err error) {
	var stack [][]float64
	numPos, parPos, opPos := 0, 0, 0

	last := len(c.postfixElements) - 1
	for iElem := 0; iElem < last; iElem++ {
		switch c.postfixElements[iElem] {

		case ENG, ENGC:
			return nil, nil, diag.NewInternalError("found ENG or ENGC in single-convolution evaluator")

		case NUM:
			stack = append(stack, []float64{c.numericalConsts[numPos]})
			numPos++

		case PARAM:
			stack = append(stack, []float64{params[c.parameterIndices[parPos]]})
			parPos++

		case OPER:
			name := c.operators[opPos]
			op, ok := c.ops.Lookup(name)
			if !ok {
				return nil, nil, diag.NewInternalError("OPER %s is not a math function in single-convolution evaluator", name)
			}
			if op.Arity == 1 {
				if len(stack) == 0 {
					return nil, nil, diag.NewUserError("trying to access empty stack in single-convolution evaluator")
				}
				op.Unary(stack[len(stack)-1])
			} else {
				if len(stack) < 2 {
					return nil, nil, diag.NewUserError("too few arguments in single-convolution evaluator")
				}
				second := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				first := stack[len(stack)-1]
				op.Binary(first, second)
			}
			opPos++

		default:
			return nil, nil, diag.NewInternalError("unknown element type in single-convolution evaluator")
		}
	}

	name := c.operators[opPos]
	if !c.reg.HasFunctionPointer(name) {
		return nil, nil, diag.NewInternalError("OPER %s does not have a registered function pointer", name)
	}
	nPars, _ := c.reg.NumberParameters(name)
	if len(stack) < nPars {
		return nil, nil, diag.NewInternalError("stack underflow popping final model parameters")
	}
	p := make([]float64, nPars)
	for iparam := 0; iparam < nPars; iparam++ {
		popped := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		p[nPars-iparam-1] = popped[0]
	}

	fn, _ := c.reg.FunctionPointer(name)
	return fn(energies, p, spectrumNumber, initString, flux)
}

// isSingleConvolve reports whether this expression's postfix form is
// entirely scalar math feeding a single trailing convolution-model
// call (spec.md §4.6.3): no ENG/ENGC, and every operator before the
// last is a math operator rather than a registered model.
func (c *CompiledExpression) isSingleConvolve() bool {
	opPos := 0
	last := len(c.postfixElements) - 1
	for i := 0; i < last; i++ {
		tag := c.postfixElements[i]
		if tag == ENG || tag == ENGC {
			return false
		}
		if tag == OPER {
			if _, ok := c.ops.Lookup(c.operators[opPos]); !ok {
				return false
			}
			opPos++
		}
	}

	if c.postfixElements[last] != OPER {
		return false
	}
	name := c.operators[len(c.operators)-1]
	if !c.reg.HasFunctionPointer(name) {
		return false
	}
	info, _ := c.reg.ComponentInfo(name)
	return info.Type == "con"
}
