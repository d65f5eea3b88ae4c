package operator

import (
	"math"
	"testing"
)

func TestSharedIsSingleton(t *testing.T) {
	a := Shared()
	b := Shared()
	if a != b {
		t.Fatalf("Shared() returned distinct tables across calls")
	}
}

func TestLookupUnaryFunctions(t *testing.T) {
	tbl := Shared()
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"sin", 0, 0},
		{"cos", 0, 1},
		{"abs", -3, 3},
		{"sqrt", 4, 2},
		{"sign", -5, -1},
		{"heaviside", -1, 0},
		{"heaviside", 0, 1},
	}
	for _, tt := range tests {
		op, ok := tbl.Lookup(tt.name)
		if !ok {
			t.Fatalf("%s: not found", tt.name)
		}
		if op.Arity != 1 {
			t.Fatalf("%s: expected arity 1, got %d", tt.name, op.Arity)
		}
		arr := []float64{tt.in}
		op.Unary(arr)
		if math.Abs(arr[0]-tt.want) > 1e-9 {
			t.Errorf("%s(%v) = %v, want %v", tt.name, tt.in, arr[0], tt.want)
		}
	}
}

func TestLookupBinaryFunctions(t *testing.T) {
	tbl := Shared()
	op, ok := tbl.Lookup("max")
	if !ok {
		t.Fatal("max: not found")
	}
	if op.Arity != 2 {
		t.Fatalf("max: expected arity 2, got %d", op.Arity)
	}
	first := []float64{1, 5}
	second := []float64{3, 2}
	op.Binary(first, second)
	want := []float64{3, 5}
	for i := range want {
		if first[i] != want[i] {
			t.Errorf("max: element %d = %v, want %v", i, first[i], want[i])
		}
	}
}

func TestPrecedence(t *testing.T) {
	tbl := Shared()
	tests := []struct {
		name string
		want int
	}{
		{"+", 0}, {"-", 0}, {"@", 0},
		{"*", 1}, {"/", 1}, {"#", 1},
		{"^", 2},
	}
	for _, tt := range tests {
		got, ok := tbl.Precedence(tt.name)
		if !ok {
			t.Fatalf("%s: precedence not found", tt.name)
		}
		if got != tt.want {
			t.Errorf("%s: precedence = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestHasDistinguishesOperatorsFromModels(t *testing.T) {
	tbl := Shared()
	if !tbl.Has("sin") {
		t.Error("Has(sin) = false, want true")
	}
	if tbl.Has("powerlaw") {
		t.Error("Has(powerlaw) = true, want false")
	}
}

func TestMeanFillsAverage(t *testing.T) {
	op, ok := Shared().Lookup("mean")
	if !ok {
		t.Fatal("mean: not found")
	}
	arr := []float64{1, 2, 3, 4}
	op.Unary(arr)
	for i, v := range arr {
		if math.Abs(v-2.5) > 1e-9 {
			t.Errorf("mean: element %d = %v, want 2.5", i, v)
		}
	}
}

func TestSminSmaxApproximateMinMax(t *testing.T) {
	tbl := Shared()
	smin, _ := tbl.Lookup("smin")
	smax, _ := tbl.Lookup("smax")

	a := []float64{5}
	b := []float64{2}
	smin.Binary(a, b)
	if math.Abs(a[0]-2) > 1e-2 {
		t.Errorf("smin(5,2) = %v, want ~2", a[0])
	}

	a = []float64{5}
	b = []float64{2}
	smax.Binary(a, b)
	if math.Abs(a[0]-5) > 1e-2 {
		t.Errorf("smax(5,2) = %v, want ~5", a[0])
	}
}
