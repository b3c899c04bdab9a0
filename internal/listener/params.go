package listener

import (
	"fmt"
	"math"
	"math/rand"
)

// dims are the sizes the network topology depends on.
type dims struct {
	Vocab    int
	MaxLen   int
	Cell     int
	NumTypes int
}

type param struct {
	name  string
	shape []int
	data  []float64
}

// parameters is the flat, ordered store of every learnable tensor. Graphs are
// built over it and share its backing slices.
type parameters struct {
	order  []string
	byName map[string]*param
}

func newParameters() *parameters {
	return &parameters{byName: make(map[string]*param)}
}

func (p *parameters) add(name string, rows, cols int) *param {
	pr := &param{name: name, shape: []int{rows, cols}, data: make([]float64, rows*cols)}
	p.order = append(p.order, name)
	p.byName[name] = pr
	return pr
}

func (p *parameters) get(name string) (*param, error) {
	pr, ok := p.byName[name]
	if !ok {
		return nil, fmt.Errorf("missing parameter %s", name)
	}
	return pr, nil
}

const numLSTMLayers = 2

func lstmName(layer int, part string) string {
	return fmt.Sprintf("lstm%d.%s", layer+1, part)
}

// lstmGates lists the gates in input, forget, cell, output order.
var lstmGates = []string{"i", "f", "c", "o"}

// peepholeGates are the gates with a cell-to-gate connection.
var peepholeGates = []string{"i", "f", "o"}

// initParameters lays out and initialises every parameter.
// LSTM weights and peepholes are N(0, 0.1), the embedding N(0, 0.01), dense
// weights Glorot-uniform, biases zero except the forget gate which starts at
// forgetBias.
func initParameters(d dims, forgetBias float64, seed int64) *parameters {
	rng := rand.New(rand.NewSource(seed))
	p := newParameters()

	normal := func(pr *param, std float64) {
		for i := range pr.data {
			pr.data[i] = rng.NormFloat64() * std
		}
	}
	glorot := func(pr *param) {
		limit := math.Sqrt(6.0 / float64(pr.shape[0]+pr.shape[1]))
		for i := range pr.data {
			pr.data[i] = (rng.Float64()*2 - 1) * limit
		}
	}

	normal(p.add("embed", d.Vocab, d.Cell), 0.01)
	for l := 0; l < numLSTMLayers; l++ {
		for _, g := range lstmGates {
			normal(p.add(lstmName(l, "w_x"+g), d.Cell, d.Cell), 0.1)
			normal(p.add(lstmName(l, "w_h"+g), d.Cell, d.Cell), 0.1)
			b := p.add(lstmName(l, "b_"+g), 1, d.Cell)
			if g == "f" {
				for i := range b.data {
					b.data[i] = forgetBias
				}
			}
		}
		for _, g := range peepholeGates {
			normal(p.add(lstmName(l, "w_c"+g), 1, d.Cell), 0.1)
		}
	}
	glorot(p.add("hidden.w", d.MaxLen*d.Cell, d.Cell))
	p.add("hidden.b", 1, d.Cell)
	glorot(p.add("scores.w", d.Cell, d.NumTypes))
	p.add("scores.b", 1, d.NumTypes)
	return p
}

// checkShapes verifies a parameter set against the expected layout.
func (p *parameters) checkShapes(d dims) error {
	want := initParameters(d, 0, 0)
	for _, name := range want.order {
		got, err := p.get(name)
		if err != nil {
			return err
		}
		w := want.byName[name]
		if len(got.shape) != 2 || got.shape[0] != w.shape[0] || got.shape[1] != w.shape[1] {
			return fmt.Errorf("parameter %s has shape %v, want %v", name, got.shape, w.shape)
		}
	}
	if len(p.order) != len(want.order) {
		return fmt.Errorf("have %d parameters, want %d", len(p.order), len(want.order))
	}
	return nil
}
