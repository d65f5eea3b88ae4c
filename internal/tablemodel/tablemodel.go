// Package tablemodel models the table-model file reader the expression
// compiler treats as an external collaborator: given a filename parsed
// out of an atable{}/mtable{}/etable{} reference, it reports the
// parameter count and whether optional redshift/escale parameters
// follow it (callers add those to the count), and interpolates a flux
// array from it.
package tablemodel

import "fmt"

// Info is the parameter/grid metadata for one table-model file.
type Info struct {
	NumberParams    int
	NumberSpectra   int
	NumberEnergies  int
	IsAdditive      bool
	IsRedshift      bool
	IsEscale        bool
}

// Reader is the interface the expression compiler consumes.
type Reader interface {
	// TableInfo returns the metadata for filename, or an error if the
	// file cannot be found.
	TableInfo(filename string) (Info, error)
	// TableInterpolate evaluates the table at the given parameters and
	// energy grid, returning flux and fluxErr sized nBins = len(energies)-1.
	TableInterpolate(energies, params []float64, filename string, spectrumNumber int, initString, tableType string, interpLog bool) (flux, fluxErr []float64, err error)
}

// Source supplies the raw per-file grid data backing a Memory reader.
// A real implementation would parse a FITS table file; this is left
// pluggable so tests and the CLI can install synthetic tables.
type Source interface {
	// Interpolate returns one flux value per bin for the given
	// parameter vector and bin-midpoint energies.
	Interpolate(params []float64, binMidpoints []float64) []float64
}

type registeredTable struct {
	info   Info
	source Source
}

// Memory is a concrete, in-memory Reader backed by explicitly
// registered Source implementations, keyed by filename.
type Memory struct {
	tables map[string]registeredTable
}

// NewMemory returns an empty, ready-to-use Memory reader.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]registeredTable)}
}

// Register installs the metadata and interpolation source for filename.
func (m *Memory) Register(filename string, info Info, source Source) {
	m.tables[filename] = registeredTable{info: info, source: source}
}

func (m *Memory) TableInfo(filename string) (Info, error) {
	t, ok := m.tables[filename]
	if !ok {
		return Info{}, fmt.Errorf("table model file %q cannot be found", filename)
	}
	return t.info, nil
}

func (m *Memory) TableInterpolate(energies, params []float64, filename string, spectrumNumber int, initString, tableType string, interpLog bool) (flux, fluxErr []float64, err error) {
	t, ok := m.tables[filename]
	if !ok {
		return nil, nil, fmt.Errorf("table model file %q cannot be found", filename)
	}
	nBins := len(energies) - 1
	mids := make([]float64, nBins)
	for i := 0; i < nBins; i++ {
		mids[i] = (energies[i] + energies[i+1]) / 2
	}
	flux = t.source.Interpolate(params, mids)
	fluxErr = make([]float64, nBins)
	return flux, fluxErr, nil
}
