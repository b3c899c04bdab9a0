// Package listener trains and queries the recurrent colour listener: a model
// that predicts a discretized RGB bucket from a colour description.
package listener

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/samcharles93/listener/internal/colors"
	"github.com/samcharles93/listener/internal/dataset"
	"github.com/samcharles93/listener/internal/logger"
	"github.com/samcharles93/listener/internal/runlog"
	"github.com/samcharles93/listener/internal/vectorize"
)

// Learner owns the vectorizers and parameters of a listener. It is safe for
// concurrent use. Train swaps in a new vocabulary and parameters together,
// and only when training succeeds.
type Learner struct {
	cfg      Config
	colorVec *colors.Vectorizer

	mu         sync.Mutex
	seqVec     *vectorize.Sequence
	params     *parameters
	d          dims
	predictors map[int]*network
}

// New returns an untrained learner.
func New(cfg Config) (*Learner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cv, err := colors.Uniform(cfg.ColorResolution)
	if err != nil {
		return nil, err
	}
	return &Learner{
		cfg:        cfg,
		seqVec:     vectorize.NewSequence(),
		colorVec:   cv,
		predictors: make(map[int]*network),
	}, nil
}

func (l *Learner) Config() Config {
	return l.cfg
}

func (l *Learner) ColorVectorizer() *colors.Vectorizer {
	return l.colorVec
}

// SequenceVectorizer returns the vocabulary the current parameters were
// trained with. Callers must not extend it.
func (l *Learner) SequenceVectorizer() *vectorize.Sequence {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seqVec
}

// Trained reports whether the learner has parameters to predict with.
func (l *Learner) Trained() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params != nil
}

// Train fits a freshly initialised network to instances. It runs
// TrainIters-1 iterations of TrainEpochs epochs each and returns the epoch
// losses of every iteration.
func (l *Learner) Train(ctx context.Context, instances []dataset.Instance) ([][]float64, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	log := logger.FromContext(ctx).With("component", "listener")

	seqVec := l.SequenceVectorizer().Clone()
	xs, ys := l.dataToArrays(log, seqVec, instances, false)

	d := dims{
		Vocab:    seqVec.NumTokens(),
		MaxLen:   seqVec.MaxLen(),
		Cell:     l.cfg.CellSize,
		NumTypes: l.colorVec.NumTypes(),
	}
	params := initParameters(d, l.cfg.ForgetBias, l.cfg.Seed)

	batch := min(l.cfg.BatchSize, len(xs))
	log.Info("building model", "vocab", d.Vocab, "max_len", d.MaxLen, "cell_size", d.Cell,
		"buckets", d.NumTypes, "batch_size", batch)
	net, err := buildNetwork(params, d, batch, true, l.cfg)
	if err != nil {
		return nil, err
	}
	defer net.close()

	log.Info("training")
	rng := rand.New(rand.NewSource(l.cfg.Seed))
	var losses [][]float64
	prog := runlog.StartTask(log, "Iteration", l.cfg.TrainIters-1)
	for iter := 1; iter < l.cfg.TrainIters; iter++ {
		prog.Update(iter)
		iterLosses, err := l.fit(ctx, net, rng, xs, ys)
		if err != nil {
			return losses, err
		}
		losses = append(losses, iterLosses)
		log.Debug("iteration done", "iteration", iter, "loss", iterLosses[len(iterLosses)-1])
	}
	prog.End()

	if err := net.syncTo(params); err != nil {
		return losses, err
	}

	l.mu.Lock()
	l.closePredictorsLocked()
	l.seqVec = seqVec
	l.params = params
	l.d = d
	l.mu.Unlock()
	return losses, nil
}

// fit runs TrainEpochs passes over shuffled minibatches and returns the mean
// batch loss of each epoch. The last batch of an epoch is topped up from the
// front of the permutation so every step sees a full batch.
func (l *Learner) fit(ctx context.Context, net *network, rng *rand.Rand, xs [][]int, ys []int) ([]float64, error) {
	n := len(xs)
	batchX := make([][]int, net.batch)
	batchY := make([]int, net.batch)
	out := make([]float64, 0, l.cfg.TrainEpochs)
	for epoch := 0; epoch < l.cfg.TrainEpochs; epoch++ {
		perm := rng.Perm(n)
		var total float64
		steps := 0
		for start := 0; start < n; start += net.batch {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for j := 0; j < net.batch; j++ {
				idx := perm[(start+j)%n]
				batchX[j] = xs[idx]
				batchY[j] = ys[idx]
			}
			loss, err := net.step(batchX, batchY)
			if err != nil {
				return nil, err
			}
			if math.IsNaN(loss) {
				return nil, fmt.Errorf("training diverged: loss is NaN in epoch %d", epoch+1)
			}
			total += loss
			steps++
		}
		out = append(out, total/float64(steps))
	}
	return out, nil
}

// dataToArrays vectorizes instances against seqVec. Training data also
// extends seqVec, which must happen before any sentence is padded.
func (l *Learner) dataToArrays(log logger.Logger, seqVec *vectorize.Sequence, instances []dataset.Instance, test bool) ([][]int, []int) {
	descs := make([][]string, len(instances))
	cs := make([]colors.RGB, len(instances))
	for i, inst := range instances {
		descs[i] = vectorize.Tokenize(inst.Input)
		cs[i] = colors.HSVToRGB(inst.Output)
	}
	if !test {
		framed := make([][]string, len(descs))
		for i, desc := range descs {
			framed[i] = vectorize.Framed(desc)
		}
		seqVec.AddAll(framed)
	}

	xs := make([][]int, len(instances))
	for i, desc := range descs {
		sentence := seqVec.Pad(desc)
		log.Debug("instance", "sentence", sentence, "color", cs[i].Hex())
		xs[i] = seqVec.Vectorize(sentence)
	}
	log.Info("vectorized", "sequences", len(xs), "test", test)
	return xs, l.colorVec.VectorizeAll(cs)
}

// predictorLocked returns a cached inference network for batch size b.
// l.mu must be held.
func (l *Learner) predictorLocked(b int) (*network, error) {
	if net, ok := l.predictors[b]; ok {
		return net, nil
	}
	net, err := buildNetwork(l.params, l.d, b, false, l.cfg)
	if err != nil {
		return nil, err
	}
	l.predictors[b] = net
	return net, nil
}

func (l *Learner) closePredictorsLocked() {
	for b, net := range l.predictors {
		net.close()
		delete(l.predictors, b)
	}
}

// probabilities runs token id rows vectorized with seqVec through the
// network in batches.
func (l *Learner) probabilities(ctx context.Context, seqVec *vectorize.Sequence, xs [][]int) ([][]float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.params == nil {
		return nil, ErrNotTrained
	}
	if seqVec != l.seqVec {
		return nil, errRetrained
	}
	batch := min(l.cfg.BatchSize, len(xs))
	if batch == 0 {
		return nil, nil
	}
	net, err := l.predictorLocked(batch)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, 0, len(xs))
	for start := 0; start < len(xs); start += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batch, len(xs))
		probs, err := net.forward(xs[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, probs...)
	}
	return out, nil
}

// Probabilities returns the bucket distribution for each instance.
func (l *Learner) Probabilities(ctx context.Context, instances []dataset.Instance) ([][]float64, error) {
	if !l.Trained() {
		return nil, ErrNotTrained
	}
	seqVec := l.SequenceVectorizer()
	xs, _ := l.dataToArrays(logger.FromContext(ctx), seqVec, instances, true)
	return l.probabilities(ctx, seqVec, xs)
}

func (l *Learner) Predict(ctx context.Context, instances []dataset.Instance) ([]colors.RGB, error) {
	pred, _, err := l.PredictAndScore(ctx, instances)
	return pred, err
}

func (l *Learner) Score(ctx context.Context, instances []dataset.Instance) ([]float64, error) {
	_, scores, err := l.PredictAndScore(ctx, instances)
	return scores, err
}

// PredictAndScore returns the centre of the most likely bucket for every
// instance, and its score log(bucket volume) - log p(gold bucket). The score
// is the negative log density of the gold colour in RGB space, so lower is
// better.
func (l *Learner) PredictAndScore(ctx context.Context, instances []dataset.Instance) ([]colors.RGB, []float64, error) {
	res, err := l.evaluate(ctx, instances)
	if err != nil {
		return nil, nil, err
	}
	return res.predictions, res.scores, nil
}

type evalResult struct {
	predictions []colors.RGB
	buckets     []int
	gold        []int
	goldProbs   []float64
	scores      []float64
}

func (l *Learner) evaluate(ctx context.Context, instances []dataset.Instance) (*evalResult, error) {
	if !l.Trained() {
		return nil, ErrNotTrained
	}
	log := logger.FromContext(ctx).With("component", "listener")
	seqVec := l.SequenceVectorizer()
	xs, ys := l.dataToArrays(log, seqVec, instances, true)

	log.Info("testing", "instances", len(instances))
	probs, err := l.probabilities(ctx, seqVec, xs)
	if err != nil {
		return nil, err
	}

	logVolume := math.Log(l.colorVec.BucketVolume())
	res := &evalResult{
		buckets:   make([]int, len(probs)),
		gold:      ys,
		goldProbs: make([]float64, len(probs)),
		scores:    make([]float64, len(probs)),
	}
	for i, p := range probs {
		res.buckets[i] = floats.MaxIdx(p)
		res.goldProbs[i] = p[ys[i]]
		res.scores[i] = logVolume - math.Log(p[ys[i]])
	}
	if res.predictions, err = l.colorVec.UnvectorizeAll(res.buckets); err != nil {
		return nil, err
	}
	return res, nil
}

// Bucket is one entry of a prediction's distribution.
type Bucket struct {
	ID          int        `json:"id"`
	Color       colors.RGB `json:"-"`
	Hex         string     `json:"hex"`
	Probability float64    `json:"probability"`
}

// Prediction is the listener's reading of a single description.
type Prediction struct {
	Description string     `json:"description"`
	Tokens      []string   `json:"tokens"`
	Color       colors.RGB `json:"-"`
	Hex         string     `json:"hex"`
	Top         []Bucket   `json:"top"`
}

// Describe predicts the colour of a single free-text description and
// returns the topK most likely buckets.
func (l *Learner) Describe(ctx context.Context, description string, topK int) (*Prediction, error) {
	if !l.Trained() {
		return nil, ErrNotTrained
	}
	seqVec := l.SequenceVectorizer()
	sentence := seqVec.Pad(vectorize.Tokenize(description))
	probs, err := l.probabilities(ctx, seqVec, [][]int{seqVec.Vectorize(sentence)})
	if err != nil {
		return nil, err
	}
	p := probs[0]

	ids := make([]int, len(p))
	for i := range ids {
		ids[i] = i
	}
	sort.SliceStable(ids, func(a, b int) bool { return p[ids[a]] > p[ids[b]] })
	topK = max(1, min(topK, len(ids)))

	pred := &Prediction{Description: description, Tokens: sentence}
	for _, id := range ids[:topK] {
		c, err := l.colorVec.Unvectorize(id)
		if err != nil {
			return nil, err
		}
		pred.Top = append(pred.Top, Bucket{ID: id, Color: c, Hex: c.Hex(), Probability: p[id]})
	}
	pred.Color = pred.Top[0].Color
	pred.Hex = pred.Top[0].Hex
	return pred, nil
}

// ScoreColor scores a single description against a colour.
func (l *Learner) ScoreColor(ctx context.Context, description string, c colors.HSV) (score, prob float64, err error) {
	res, err := l.evaluate(ctx, []dataset.Instance{{Input: description, Output: c}})
	if err != nil {
		return 0, 0, err
	}
	return res.scores[0], res.goldProbs[0], nil
}
