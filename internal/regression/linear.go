package regression

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rcond is the relative singular value cut-off below which directions of the
// centred design matrix are treated as collinear.
const rcond = 1e-12

// Linear is ordinary least squares with an intercept. Collinear features,
// e.g. a sector and the two sub-sectors it is made of, get the minimum norm
// solution instead of failing.
type Linear struct {
	Intercept    float64
	Coefficients []float64

	fitted bool
}

func (l *Linear) Type() string {
	return TypeLinear
}

func (l *Linear) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return errors.Wrapf(ErrInsufficientData, "linear: %d samples, %d targets", len(x), len(y))
	}

	n, p := len(x), len(x[0])

	means := make([]float64, p)
	column := make([]float64, n)

	for j := 0; j < p; j++ {
		for i := range x {
			column[i] = x[i][j]
		}

		means[j] = stat.Mean(column, nil)
	}

	yMean := stat.Mean(y, nil)

	a := mat.NewDense(n, p, nil)
	b := mat.NewVecDense(n, nil)

	for i := range x {
		for j := 0; j < p; j++ {
			a.Set(i, j, x[i][j]-means[j])
		}

		b.SetVec(i, y[i]-yMean)
	}

	coefficients := make([]float64, p)

	var svd mat.SVD

	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return errors.New("regression: linear: singular value decomposition failed")
	}

	if rank := svd.Rank(rcond); rank > 0 {
		var solution mat.VecDense
		svd.SolveVecTo(&solution, b, rank)

		for j := range coefficients {
			coefficients[j] = solution.AtVec(j)
		}
	}

	intercept := yMean

	for j, c := range coefficients {
		intercept -= c * means[j]
	}

	l.Coefficients = coefficients
	l.Intercept = intercept
	l.fitted = true

	return nil
}

func (l *Linear) Predict(x []float64) float64 {
	v := l.Intercept

	for j, c := range l.Coefficients {
		v += c * x[j]
	}

	return v
}

func (l *Linear) Fitted() bool {
	return l.fitted
}
