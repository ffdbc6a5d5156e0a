package transformer

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/soundprediction/cartograph/pkg/simplicial"
)

// gatherContributions collects one feature vector per incident simplex.
//
// A 1-simplex contributes the neighbor's current embedding scaled by the
// edge's aggregate confidence and relation-type signal. A 2-simplex
// contributes the mean of the two other triangle vertices' embeddings
// scaled by the triangle's aggregate confidence.
func gatherContributions(cx *simplicial.Complex, id string, current map[string][]float64) [][]float64 {
	edges := cx.IncidentEdges(id)
	triangles := cx.IncidentTriangles(id)
	if len(edges) == 0 && len(triangles) == 0 {
		return nil
	}

	contributions := make([][]float64, 0, len(edges)+len(triangles))

	for _, e := range edges {
		neighbor := e.V
		if neighbor == id {
			neighbor = e.U
		}
		vec, ok := current[neighbor]
		if !ok {
			continue
		}
		scale := e.Confidence * relationSignal(e)
		contributions = append(contributions, scaled(vec, scale))
	}

	for _, tri := range triangles {
		others := otherVertices(tri, id)
		a, okA := current[others[0]]
		b, okB := current[others[1]]
		if !okA || !okB {
			continue
		}
		contrib := make([]float64, len(a))
		for i := range contrib {
			contrib[i] = (a[i] + b[i]) / 2 * tri.Confidence
		}
		contributions = append(contributions, contrib)
	}

	return contributions
}

// attend computes the multi-head attention-weighted aggregate of the
// contributions with respect to the node's current embedding. Head
// outputs are concatenated and projected back to the hidden
// dimensionality.
func (t *Transformer) attend(l *layer, nodeVec []float64, contributions [][]float64) []float64 {
	concat := make([]float64, t.config.HiddenDim)
	node := mat.NewVecDense(len(nodeVec), nodeVec)
	invSqrt := 1 / math.Sqrt(float64(t.headDim))

	for h := 0; h < t.config.NumHeads; h++ {
		query := mat.NewVecDense(t.headDim, nil)
		query.MulVec(l.query[h], node)

		scores := make([]float64, len(contributions))
		values := make([]*mat.VecDense, len(contributions))
		for i, contrib := range contributions {
			cv := mat.NewVecDense(len(contrib), contrib)

			key := mat.NewVecDense(t.headDim, nil)
			key.MulVec(l.key[h], cv)
			scores[i] = mat.Dot(query, key) * invSqrt

			value := mat.NewVecDense(t.headDim, nil)
			value.MulVec(l.value[h], cv)
			values[i] = value
		}

		softmax(scores)

		headOut := concat[h*t.headDim : (h+1)*t.headDim]
		for i, weight := range scores {
			raw := values[i].RawVector().Data
			for d := range headOut {
				headOut[d] += weight * raw[d]
			}
		}
	}

	out := mat.NewVecDense(t.config.HiddenDim, nil)
	out.MulVec(l.output, mat.NewVecDense(len(concat), concat))
	return out.RawVector().Data
}

// softmax normalizes scores in place, shifted by the max for stability.
func softmax(scores []float64) {
	if len(scores) == 0 {
		return
	}
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	for i, s := range scores {
		scores[i] = math.Exp(s - maxScore)
		sum += scores[i]
	}
	if sum == 0 {
		uniform := 1 / float64(len(scores))
		for i := range scores {
			scores[i] = uniform
		}
		return
	}
	for i := range scores {
		scores[i] /= sum
	}
}

// relationSignal averages the relation-type signals over an edge's
// relation multiset.
func relationSignal(e *simplicial.EdgeSimplex) float64 {
	if len(e.Relations) == 0 {
		return 0.5
	}
	var sum float64
	for _, r := range e.Relations {
		sum += r.Signal()
	}
	return sum / float64(len(e.Relations))
}

func otherVertices(tri *simplicial.TriangleSimplex, id string) [2]string {
	switch id {
	case tri.U:
		return [2]string{tri.V, tri.W}
	case tri.V:
		return [2]string{tri.U, tri.W}
	default:
		return [2]string{tri.U, tri.V}
	}
}

func scaled(vec []float64, factor float64) []float64 {
	out := make([]float64, len(vec))
	for i, x := range vec {
		out[i] = x * factor
	}
	return out
}
