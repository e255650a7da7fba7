package regression

import (
	"github.com/pkg/errors"
)

// Forest averages regression trees, each grown on a bootstrap sample of the
// training rows. Every split considers every feature, so for a given Seed the
// fitted forest is fully deterministic.
type Forest struct {
	Trees          int
	MaxDepth       int
	MinSamplesLeaf int
	Seed           uint64

	trees       []*tree
	importances []float64
}

func NewForest(config Config) *Forest {
	return &Forest{
		Trees:          config.Trees,
		MaxDepth:       config.MaxDepth,
		MinSamplesLeaf: config.MinSamplesLeaf,
		Seed:           config.Seed,
	}
}

func (f *Forest) Type() string {
	return TypeRandomForest
}

func (f *Forest) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return errors.Wrapf(ErrInsufficientData, "random forest: %d samples, %d targets", len(x), len(y))
	}

	if f.Trees <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "random forest: %d trees", f.Trees)
	}

	minLeaf := f.MinSamplesLeaf

	if minLeaf < 1 {
		minLeaf = 1
	}

	rng := newRand(f.Seed)
	n := len(x)

	f.trees = make([]*tree, 0, f.Trees)
	f.importances = make([]float64, len(x[0]))

	samples := make([]int, n)

	for t := 0; t < f.Trees; t++ {
		for i := range samples {
			samples[i] = rng.IntN(n)
		}

		tr, decrease := growTree(x, y, samples, f.MaxDepth, minLeaf)
		f.trees = append(f.trees, tr)

		addNormalised(f.importances, decrease)
	}

	normalise(f.importances)

	return nil
}

func (f *Forest) Predict(x []float64) float64 {
	sum := 0.0

	for _, t := range f.trees {
		sum += t.predict(x)
	}

	return sum / float64(len(f.trees))
}

func (f *Forest) Fitted() bool {
	return len(f.trees) > 0
}

// Importances returns, per feature, the share of squared error removed by
// splits on that feature, averaged over the trees. The shares sum to one
// unless no tree split at all.
func (f *Forest) Importances() []float64 {
	return append([]float64(nil), f.importances...)
}

func addNormalised(dst, values []float64) {
	total := 0.0

	for _, v := range values {
		total += v
	}

	if total <= 0 {
		return
	}

	for i, v := range values {
		dst[i] += v / total
	}
}

func normalise(values []float64) {
	total := 0.0

	for _, v := range values {
		total += v
	}

	if total <= 0 {
		return
	}

	for i := range values {
		values[i] /= total
	}
}
