package listener

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/samcharles93/listener/internal/colors"
	"github.com/samcharles93/listener/internal/dataset"
)

// Metrics summarises a listener on held-out instances.
type Metrics struct {
	Instances  int     `json:"instances"`
	MeanScore  float64 `json:"mean_score"`
	Accuracy   float64 `json:"accuracy"`
	Perplexity float64 `json:"perplexity"`
	// MeanRGBDistance is the mean Euclidean distance between the predicted
	// bucket centre and the gold colour.
	MeanRGBDistance float64 `json:"mean_rgb_distance"`
}

// Evaluation carries per-instance outputs alongside the summary.
type Evaluation struct {
	Metrics     Metrics
	Predictions []colors.RGB
	Scores      []float64
}

// Evaluate predicts and scores instances and summarises the results.
func (l *Learner) Evaluate(ctx context.Context, instances []dataset.Instance) (*Evaluation, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	res, err := l.evaluate(ctx, instances)
	if err != nil {
		return nil, err
	}

	n := len(instances)
	nll := make([]float64, n)
	dist := make([]float64, n)
	correct := 0
	for i, inst := range instances {
		nll[i] = -math.Log(res.goldProbs[i])
		if res.buckets[i] == res.gold[i] {
			correct++
		}
		gold := colors.HSVToRGB(inst.Output)
		p := res.predictions[i]
		dist[i] = math.Sqrt((p.R-gold.R)*(p.R-gold.R) + (p.G-gold.G)*(p.G-gold.G) + (p.B-gold.B)*(p.B-gold.B))
	}

	return &Evaluation{
		Metrics: Metrics{
			Instances:       n,
			MeanScore:       stat.Mean(res.scores, nil),
			Accuracy:        float64(correct) / float64(n),
			Perplexity:      math.Exp(stat.Mean(nll, nil)),
			MeanRGBDistance: stat.Mean(dist, nil),
		},
		Predictions: res.predictions,
		Scores:      res.scores,
	}, nil
}
