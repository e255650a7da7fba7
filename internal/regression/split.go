package regression

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Split shuffles n sample indexes with a generator seeded by seed and returns
// ceil(n*testFraction) of them as the test set. Both sets are non-empty for
// n >= 2 and come back in ascending order.
func Split(n int, testFraction float64, seed uint64) (train, test []int) {
	if n < 2 {
		for i := 0; i < n; i++ {
			train = append(train, i)
		}

		return train, nil
	}

	nTest := int(math.Ceil(float64(n) * testFraction))

	if nTest < 1 {
		nTest = 1
	}

	if nTest >= n {
		nTest = n - 1
	}

	perm := newRand(seed).Perm(n)

	test = append(test, perm[:nTest]...)
	train = append(train, perm[nTest:]...)

	sort.Ints(test)
	sort.Ints(train)

	return train, test
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
