package regression

import (
	"sort"
)

type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
}

func (n treeNode) leaf() bool {
	return n.left < 0
}

// tree is a regression tree grown on squared error. Nodes are stored in a
// flat slice, the root first.
type tree struct {
	nodes []treeNode
}

func (t *tree) predict(x []float64) float64 {
	i := 0

	for !t.nodes[i].leaf() {
		if x[t.nodes[i].feature] <= t.nodes[i].threshold {
			i = t.nodes[i].left
		} else {
			i = t.nodes[i].right
		}
	}

	return t.nodes[i].value
}

type treeBuilder struct {
	x        [][]float64
	y        []float64
	maxDepth int
	minLeaf  int

	nodes []treeNode
	// decrease is the total squared error removed by splits on each feature.
	decrease []float64
}

func growTree(x [][]float64, y []float64, samples []int, maxDepth, minLeaf int) (*tree, []float64) {
	b := &treeBuilder{
		x:        x,
		y:        y,
		maxDepth: maxDepth,
		minLeaf:  minLeaf,
		decrease: make([]float64, len(x[0])),
	}

	b.build(samples, 0)

	return &tree{nodes: b.nodes}, b.decrease
}

func (b *treeBuilder) build(samples []int, depth int) int {
	n := float64(len(samples))
	sum, sumSq := 0.0, 0.0

	for _, s := range samples {
		sum += b.y[s]
		sumSq += b.y[s] * b.y[s]
	}

	id := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{left: -1, right: -1, value: sum / n})

	if b.maxDepth > 0 && depth >= b.maxDepth {
		return id
	}

	if len(samples) < 2*b.minLeaf {
		return id
	}

	if sumSq-sum*sum/n <= 0 {
		return id
	}

	feature, threshold, gain, ok := b.bestSplit(samples, sum)

	if !ok {
		return id
	}

	var left, right []int

	for _, s := range samples {
		if b.x[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	b.decrease[feature] += gain

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	b.nodes[id].feature = feature
	b.nodes[id].threshold = threshold
	b.nodes[id].left = l
	b.nodes[id].right = r

	return id
}

// bestSplit scans every feature for the threshold that removes the most
// squared error. Thresholds sit halfway between two distinct neighbouring
// values, so equal values always end up on the same side.
func (b *treeBuilder) bestSplit(samples []int, sum float64) (feature int, threshold, gain float64, ok bool) {
	n := len(samples)
	parent := sum * sum / float64(n)
	sorted := make([]int, n)

	for f := range b.decrease {
		copy(sorted, samples)

		sort.Slice(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})

		leftSum := 0.0

		for i := 0; i < n-1; i++ {
			leftSum += b.y[sorted[i]]

			nLeft, nRight := i+1, n-i-1

			if nLeft < b.minLeaf {
				continue
			}

			if nRight < b.minLeaf {
				break
			}

			lo, hi := b.x[sorted[i]][f], b.x[sorted[i+1]][f]

			if lo == hi {
				continue
			}

			rightSum := sum - leftSum
			g := leftSum*leftSum/float64(nLeft) + rightSum*rightSum/float64(nRight) - parent

			if g > gain {
				feature, gain, ok = f, g, true
				threshold = lo + (hi-lo)/2

				if threshold >= hi {
					threshold = lo
				}
			}
		}
	}

	return feature, threshold, gain, ok
}
