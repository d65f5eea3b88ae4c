package mdef

import (
	"math"
	"testing"

	"mdefexpr/internal/diag"
	"mdefexpr/internal/registry"
	"mdefexpr/internal/tablemodel"
)

func approxEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestEvaluateEnergyVariable(t *testing.T) {
	c := newTestExpr("add")
	if err := c.Init("e", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flux, _, err := c.Evaluate([]float64{1.0, 2.0, 4.0}, nil, 1, nil, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1.5, 6.0}
	if !approxEqual(flux, want, 1e-9) {
		t.Fatalf("flux = %v, want %v", flux, want)
	}
}

func TestEvaluateLinearWithParameter(t *testing.T) {
	c := newTestExpr("add")
	if err := c.Init("2*e + p", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.DistinctParameterNames(); len(got) != 1 || got[0] != "p" {
		t.Fatalf("DistinctParameterNames = %v, want [p]", got)
	}
	flux, _, err := c.Evaluate([]float64{0, 1, 2}, []float64{0.5}, 1, nil, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1.5, 3.5}
	if !approxEqual(flux, want, 1e-9) {
		t.Fatalf("flux = %v, want %v", flux, want)
	}
}

func TestEvaluateUnaryMinusAndPower(t *testing.T) {
	c := newTestExpr("add")
	if err := c.Init("-e^2", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flux, _, err := c.Evaluate([]float64{1, 2}, nil, 1, nil, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{-2.25}
	if !approxEqual(flux, want, 1e-9) {
		t.Fatalf("flux = %v, want %v", flux, want)
	}
}

func TestEvaluateBinaryMaxFunction(t *testing.T) {
	c := newTestExpr("add")
	if err := c.Init("max(e, 3)", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flux, _, err := c.Evaluate([]float64{1, 2, 4, 8}, nil, 1, nil, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{3, 6, 24}
	if !approxEqual(flux, want, 1e-9) {
		t.Fatalf("flux = %v, want %v", flux, want)
	}
}

func TestEvaluateBinWidthLawForAdd(t *testing.T) {
	c := newTestExpr("add")
	if err := c.Init("3", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	energies := []float64{0.5, 1.5, 4.0}
	flux, _, err := c.Evaluate(energies, nil, 1, nil, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{3 * 1.0, 3 * 2.5}
	if !approxEqual(flux, want, 1e-9) {
		t.Fatalf("flux = %v, want %v", flux, want)
	}
}

func TestEvaluateUnknownModelWarnsAndSubstitutesZero(t *testing.T) {
	c := newTestExpr("add")
	// "wxyz" has length > 2 but never matches a registered model, a math
	// function, or a table-model prefix, so it is classified as a
	// parameter name at compile time -- the warn-and-zero path is only
	// reachable for an OPER element whose name resolved to none of the
	// evaluator's branches. Reach it here by registering the model without
	// a callable: the compiler finds the name, but at evaluation time the
	// registry reports no function pointer for it.
	reg := registry.NewMemory()
	reg.Register(registry.ComponentInfo{Name: "ghostmodel", Type: "add"}, 0, nil)
	c = New(0.1, 100, "add", "mymodel", reg, tablemodel.NewMemory())
	if err := c.Init("ghostmodel()", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sink := &diag.Sink{}
	flux, _, err := c.Evaluate([]float64{1, 2, 4}, nil, 1, nil, "", sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", sink.Warnings)
	}
	want := []float64{0, 0}
	if !approxEqual(flux, want, 1e-9) {
		t.Fatalf("flux = %v, want %v", flux, want)
	}
}

func TestEvaluateRegisteredAdditiveModel(t *testing.T) {
	reg := registry.NewMemory()
	reg.Register(registry.ComponentInfo{Name: "powerlaw", Type: "add"}, 1, func(energies, params []float64, spectrumNumber int, initString string, inputFlux []float64) (flux, fluxErr []float64, err error) {
		nBins := len(energies) - 1
		flux = make([]float64, nBins)
		for i := range flux {
			flux[i] = params[0]
		}
		return flux, make([]float64, nBins), nil
	})
	c := New(0.1, 100, "add", "mymodel", reg, tablemodel.NewMemory())
	if err := c.Init("powerlaw(p1)", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	energies := []float64{1, 2, 4}
	flux, _, err := c.Evaluate(energies, []float64{5}, 1, nil, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// powerlaw returns a constant 5 already divided by bin width inside the
	// evaluator's add-component bookkeeping, then componentType=="add"
	// multiplies back by the bin width, netting out to a flat 5.
	want := []float64{5, 5}
	if !approxEqual(flux, want, 1e-9) {
		t.Fatalf("flux = %v, want %v", flux, want)
	}
}

func TestEvaluateSingleConvolveFastPath(t *testing.T) {
	calls := 0
	var gotParams []float64
	reg := registry.NewMemory()
	reg.Register(registry.ComponentInfo{Name: "convmod", Type: "con"}, 2, func(energies, params []float64, spectrumNumber int, initString string, inputFlux []float64) (flux, fluxErr []float64, err error) {
		calls++
		gotParams = append([]float64(nil), params...)
		out := append([]float64(nil), inputFlux...)
		return out, make([]float64, len(out)), nil
	})
	c := New(0.1, 100, "con", "mymodel", reg, tablemodel.NewMemory())
	if err := c.Init("convmod(2*p1, p2)", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	energies := []float64{1, 2, 4}
	initFlux := []float64{10, 20}
	flux, _, err := c.Evaluate(energies, []float64{3, 7}, 1, initFlux, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("convolution model invoked %d times, want exactly 1", calls)
	}
	wantParams := []float64{6, 7}
	if !approxEqual(gotParams, wantParams, 1e-9) {
		t.Fatalf("params passed to convolution model = %v, want %v", gotParams, wantParams)
	}
	if !approxEqual(flux, initFlux, 1e-9) {
		t.Fatalf("flux = %v, want the unchanged input flux %v", flux, initFlux)
	}
}

func TestEvaluateFluxSizeMismatchInConvolutionPath(t *testing.T) {
	reg := registry.NewMemory()
	reg.Register(registry.ComponentInfo{Name: "convmod", Type: "con"}, 1, func(energies, params []float64, spectrumNumber int, initString string, inputFlux []float64) (flux, fluxErr []float64, err error) {
		return inputFlux, make([]float64, len(inputFlux)), nil
	})
	c := New(0.1, 100, "con", "mymodel", reg, tablemodel.NewMemory())
	if err := c.Init("convmod(p1)", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, err := c.Evaluate([]float64{1, 2, 4}, []float64{1}, 1, []float64{1}, "", nil)
	if err == nil {
		t.Fatal("expected a flux-size-mismatch error, got nil")
	}
	if !diag.IsUserError(err) {
		t.Fatalf("expected a user error, got %v", err)
	}
}
