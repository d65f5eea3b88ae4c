package registry

import "testing"

func constantFlux(v float64) Callable {
	return func(energies, params []float64, spectrumNumber int, initString string, inputFlux []float64) (flux, fluxErr []float64, err error) {
		nBins := len(energies) - 1
		flux = make([]float64, nBins)
		for i := range flux {
			flux[i] = v
		}
		return flux, make([]float64, nBins), nil
	}
}

func TestRegisterAndLookup(t *testing.T) {
	m := NewMemory()
	m.Register(ComponentInfo{Name: "powerlaw", Type: "add"}, 2, constantFlux(1))

	if !m.IsExactMatchName("powerlaw") {
		t.Fatal("IsExactMatchName(powerlaw) = false, want true")
	}
	if m.IsExactMatchName("nonexistent") {
		t.Fatal("IsExactMatchName(nonexistent) = true, want false")
	}

	info, ok := m.ComponentInfo("powerlaw")
	if !ok || info.Type != "add" {
		t.Fatalf("ComponentInfo(powerlaw) = %+v, %v", info, ok)
	}

	n, ok := m.NumberParameters("powerlaw")
	if !ok || n != 2 {
		t.Fatalf("NumberParameters(powerlaw) = %d, %v, want 2, true", n, ok)
	}

	if !m.HasFunctionPointer("powerlaw") {
		t.Fatal("HasFunctionPointer(powerlaw) = false, want true")
	}
	fn, ok := m.FunctionPointer("powerlaw")
	if !ok || fn == nil {
		t.Fatal("FunctionPointer(powerlaw) returned nil or ok=false")
	}
	flux, _, err := fn([]float64{1, 2, 3}, nil, 1, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flux) != 2 || flux[0] != 1 {
		t.Fatalf("flux = %v, want [1 1]", flux)
	}
}

func TestRegisterWithNilFunctionIsDeclaredButNotCallable(t *testing.T) {
	m := NewMemory()
	m.Register(ComponentInfo{Name: "declonly", Type: "mul"}, 1, nil)

	if !m.IsExactMatchName("declonly") {
		t.Fatal("expected declonly to be registered")
	}
	if m.HasFunctionPointer("declonly") {
		t.Fatal("HasFunctionPointer(declonly) = true, want false")
	}
	if _, ok := m.FunctionPointer("declonly"); ok {
		t.Fatal("FunctionPointer(declonly) ok = true, want false")
	}
}

func TestConcurrentRegisterAndLookup(t *testing.T) {
	m := NewMemory()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			m.Register(ComponentInfo{Name: "concurrent", Type: "add"}, 1, constantFlux(1))
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		m.IsExactMatchName("concurrent")
	}
	<-done
}
