package listener

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// probEpsilon keeps log() finite when the softmax underflows.
const probEpsilon = 1e-10

// network is one compiled expression graph for a fixed batch size. Training
// networks carry a target, a cost and dropout; inference networks only
// produce probabilities.
type network struct {
	d     dims
	batch int
	train bool

	g          *G.ExprGraph
	inputs     []*G.Node
	target     *G.Node
	probs      *G.Node
	cost       *G.Node
	learnables G.Nodes
	byName     map[string]*G.Node

	inputVals  []*tensor.Dense
	inputData  [][]float64
	targetVal  *tensor.Dense
	targetData []float64
	costVal    G.Value
	probsVal   G.Value

	vm     G.VM
	solver G.Solver
}

type lstmNodes struct {
	wx, wh, b map[string]*G.Node
	wc        map[string]*G.Node
}

// buildNetwork wires embedding -> LSTM -> LSTM -> dense -> dense -> softmax
// over p. Gorgonia construction helpers panic on shape errors; those are
// returned as errors.
func buildNetwork(p *parameters, d dims, batch int, train bool, cfg Config) (n *network, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n, err = nil, fmt.Errorf("build listener graph: %v", rec)
		}
	}()

	n = &network{
		d:      d,
		batch:  batch,
		train:  train,
		g:      G.NewGraph(),
		byName: make(map[string]*G.Node, len(p.order)),
	}
	for _, name := range p.order {
		pr := p.byName[name]
		val := tensor.New(tensor.WithShape(pr.shape...), tensor.WithBacking(pr.data))
		node := G.NewMatrix(n.g, tensor.Float64,
			G.WithShape(pr.shape...),
			G.WithName(name),
			G.WithValue(val),
		)
		n.byName[name] = node
		n.learnables = append(n.learnables, node)
	}

	dropout := func(x *G.Node) *G.Node {
		if !train || cfg.Dropout == 0 {
			return x
		}
		return G.Must(G.Dropout(x, cfg.Dropout))
	}

	// Token ids are fed as one-hot rows; multiplying by the embedding
	// matrix is the lookup.
	seq := make([]*G.Node, d.MaxLen)
	for t := 0; t < d.MaxLen; t++ {
		x := G.NewMatrix(n.g, tensor.Float64, G.WithShape(batch, d.Vocab), G.WithName(fmt.Sprintf("x%d", t)))
		n.inputs = append(n.inputs, x)
		backing := make([]float64, batch*d.Vocab)
		n.inputData = append(n.inputData, backing)
		n.inputVals = append(n.inputVals, tensor.New(tensor.WithShape(batch, d.Vocab), tensor.WithBacking(backing)))
		seq[t] = G.Must(G.Mul(x, n.byName["embed"]))
	}

	for l := 0; l < numLSTMLayers; l++ {
		seq = n.lstmLayer(n.layerNodes(l), seq)
		for t := range seq {
			seq[t] = dropout(seq[t])
		}
	}

	flat := seq[0]
	if len(seq) > 1 {
		flat = G.Must(G.Concat(1, seq...))
	}
	hidden := n.dense(flat, "hidden")
	hidden = dropout(hidden)
	scores := n.dense(hidden, "scores")
	n.probs = G.Must(G.SoftMax(scores))

	if !train {
		G.Read(n.probs, &n.probsVal)
		n.vm = G.NewTapeMachine(n.g)
		return n, nil
	}

	n.target = G.NewMatrix(n.g, tensor.Float64, G.WithShape(batch, d.NumTypes), G.WithName("y"))
	n.targetData = make([]float64, batch*d.NumTypes)
	n.targetVal = tensor.New(tensor.WithShape(batch, d.NumTypes), tensor.WithBacking(n.targetData))

	logp := G.Must(G.Log(G.Must(G.Add(n.probs, G.NewConstant(probEpsilon)))))
	perRow := G.Must(G.Sum(G.Must(G.HadamardProd(n.target, logp)), 1))
	n.cost = G.Must(G.Neg(G.Must(G.Mean(perRow))))
	G.Read(n.cost, &n.costVal)

	if _, err := G.Grad(n.cost, n.learnables...); err != nil {
		return nil, fmt.Errorf("differentiate listener graph: %w", err)
	}
	n.vm = G.NewTapeMachine(n.g, G.BindDualValues(n.learnables...))
	n.solver = G.NewRMSPropSolver(
		G.WithLearnRate(cfg.LearningRate),
		G.WithRho(0.9),
		G.WithEps(1e-6),
	)
	return n, nil
}

func (n *network) layerNodes(l int) lstmNodes {
	ln := lstmNodes{
		wx: make(map[string]*G.Node),
		wh: make(map[string]*G.Node),
		b:  make(map[string]*G.Node),
		wc: make(map[string]*G.Node),
	}
	for _, g := range lstmGates {
		ln.wx[g] = n.byName[lstmName(l, "w_x"+g)]
		ln.wh[g] = n.byName[lstmName(l, "w_h"+g)]
		ln.b[g] = n.byName[lstmName(l, "b_"+g)]
	}
	for _, g := range peepholeGates {
		ln.wc[g] = n.byName[lstmName(l, "w_c"+g)]
	}
	return ln
}

// lstmLayer runs a peephole LSTM over xs from a zero state and returns the
// hidden state at every step.
func (n *network) lstmLayer(ln lstmNodes, xs []*G.Node) []*G.Node {
	var h, c *G.Node
	out := make([]*G.Node, len(xs))
	for t, x := range xs {
		h, c = lstmStep(ln, x, h, c)
		out[t] = h
	}
	return out
}

// lstmStep computes one step. A nil hPrev/cPrev stands for the zero state,
// so the terms it would contribute are left out of the graph.
func lstmStep(ln lstmNodes, x, hPrev, cPrev *G.Node) (h, c *G.Node) {
	rowBroadcast := []byte{0}
	preact := func(g string, cell *G.Node) *G.Node {
		z := G.Must(G.Mul(x, ln.wx[g]))
		if hPrev != nil {
			z = G.Must(G.Add(z, G.Must(G.Mul(hPrev, ln.wh[g]))))
		}
		if w, ok := ln.wc[g]; ok && cell != nil {
			z = G.Must(G.Add(z, G.Must(G.BroadcastHadamardProd(cell, w, nil, rowBroadcast))))
		}
		return G.Must(G.BroadcastAdd(z, ln.b[g], nil, rowBroadcast))
	}

	in := G.Must(G.Sigmoid(preact("i", cPrev)))
	cand := G.Must(G.Tanh(preact("c", nil)))
	c = G.Must(G.HadamardProd(in, cand))
	if cPrev != nil {
		forget := G.Must(G.Sigmoid(preact("f", cPrev)))
		c = G.Must(G.Add(c, G.Must(G.HadamardProd(forget, cPrev))))
	}
	out := G.Must(G.Sigmoid(preact("o", c)))
	h = G.Must(G.HadamardProd(out, G.Must(G.Tanh(c))))
	return h, c
}

func (n *network) dense(x *G.Node, prefix string) *G.Node {
	z := G.Must(G.Mul(x, n.byName[prefix+".w"]))
	return G.Must(G.BroadcastAdd(z, n.byName[prefix+".b"], nil, []byte{0}))
}

// load writes a batch of token id rows into the one-hot inputs. Rows beyond
// len(xs) are left as zero vectors.
func (n *network) load(xs [][]int) error {
	if len(xs) > n.batch {
		return fmt.Errorf("batch of %d rows exceeds graph batch size %d", len(xs), n.batch)
	}
	for r, row := range xs {
		if len(row) != n.d.MaxLen {
			return fmt.Errorf("row %d has %d tokens, graph expects %d", r, len(row), n.d.MaxLen)
		}
		for _, id := range row {
			if id < 0 || id >= n.d.Vocab {
				return fmt.Errorf("row %d: token id %d outside vocabulary of %d", r, id, n.d.Vocab)
			}
		}
	}
	for t, val := range n.inputVals {
		data := n.inputData[t]
		clear(data)
		for r, row := range xs {
			data[r*n.d.Vocab+row[t]] = 1
		}
		if err := G.Let(n.inputs[t], val); err != nil {
			return err
		}
	}
	return nil
}

func (n *network) loadTargets(ys []int) error {
	data := n.targetData
	clear(data)
	for r, y := range ys {
		data[r*n.d.NumTypes+y] = 1
	}
	return G.Let(n.target, n.targetVal)
}

// step runs one forward/backward pass and applies an RMSProp update.
func (n *network) step(xs [][]int, ys []int) (float64, error) {
	if !n.train {
		return 0, fmt.Errorf("step called on an inference graph")
	}
	if len(xs) != n.batch || len(ys) != n.batch {
		return 0, fmt.Errorf("training batch must have exactly %d rows", n.batch)
	}
	if err := n.load(xs); err != nil {
		return 0, err
	}
	if err := n.loadTargets(ys); err != nil {
		return 0, err
	}
	defer n.vm.Reset()
	if err := n.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("run training graph: %w", err)
	}
	loss, err := scalarValue(n.costVal)
	if err != nil {
		return 0, err
	}
	if err := n.solver.Step(G.NodesToValueGrads(n.learnables)); err != nil {
		return 0, fmt.Errorf("rmsprop step: %w", err)
	}
	return loss, nil
}

// forward returns the class distribution for each of the len(xs) rows.
func (n *network) forward(xs [][]int) ([][]float64, error) {
	if err := n.load(xs); err != nil {
		return nil, err
	}
	defer n.vm.Reset()
	if err := n.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("run inference graph: %w", err)
	}
	if n.probsVal == nil {
		return nil, fmt.Errorf("inference graph produced no output")
	}
	flat, ok := n.probsVal.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", n.probsVal.Data())
	}
	out := make([][]float64, len(xs))
	for r := range out {
		row := make([]float64, n.d.NumTypes)
		copy(row, flat[r*n.d.NumTypes:(r+1)*n.d.NumTypes])
		out[r] = row
	}
	return out, nil
}

// syncTo copies the current learnable values into p. Solvers may replace a
// node's value instead of updating the shared backing in place.
func (n *network) syncTo(p *parameters) error {
	for _, node := range n.learnables {
		pr, err := p.get(node.Name())
		if err != nil {
			return err
		}
		data, ok := node.Value().Data().([]float64)
		if !ok || len(data) != len(pr.data) {
			return fmt.Errorf("parameter %s: unexpected value", pr.name)
		}
		copy(pr.data, data)
	}
	return nil
}

func (n *network) close() {
	if n.vm != nil {
		_ = n.vm.Close()
	}
}

func scalarValue(v G.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("cost was not computed")
	}
	switch d := v.Data().(type) {
	case float64:
		return d, nil
	case []float64:
		if len(d) == 1 {
			return d[0], nil
		}
	}
	return 0, fmt.Errorf("unexpected cost value %T", v.Data())
}
