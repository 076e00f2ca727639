package centrality

import (
	"dexnetwork/internal/network"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultMaxIter = 1000
	DefaultTol     = 1e-6
)

// EigenResult is the principal eigenvector by node index of the graph it was computed on
type EigenResult struct {
	Values     []float64
	Iterations int
	Converged  bool
}

// Eigenvector power iteration on (Aᵀ + I): x_v <- x_v + sum over u->v of w(u,v)*x_u, L2-normalized
// every step. Stops when the L1 change drops under n*tol; past maxIter the last iterate is
// returned with Converged=false
func Eigenvector(adj [][]float64, maxIter int, tol float64) EigenResult {
	n := len(adj)
	if n == 0 {
		return EigenResult{Converged: true}
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	if tol <= 0 {
		tol = DefaultTol
	}

	// M = Aᵀ + I
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			w := adj[j][i]
			if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
				w = 0
			}
			m.Set(i, j, w)
		}
		m.Set(i, i, m.At(i, i)+1)
	}

	x := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x.SetVec(i, 1/float64(n))
	}
	next := mat.NewVecDense(n, nil)

	res := EigenResult{}
	for it := 1; it <= maxIter; it++ {
		next.MulVec(m, x)
		norm := mat.Norm(next, 2)
		if norm == 0 {
			next.Zero()
		} else {
			next.ScaleVec(1/norm, next)
		}

		var diff float64
		for i := 0; i < n; i++ {
			diff += math.Abs(next.AtVec(i) - x.AtVec(i))
		}
		x, next = next, x
		res.Iterations = it

		if diff < float64(n)*tol {
			res.Converged = true
			break
		}
	}

	res.Values = make([]float64, n)
	for i := 0; i < n; i++ {
		res.Values[i] = x.AtVec(i)
	}
	return res
}

// Inflow, outflow and undirected centrality of g, by node index of g
type Directional struct {
	Inflow     EigenResult
	Outflow    EigenResult
	Undirected EigenResult
}

func Directions(g *network.Graph, maxIter int, tol float64) Directional {
	adj := g.Adjacency()
	rev := transpose(adj)
	return Directional{
		Inflow:     Eigenvector(adj, maxIter, tol),
		Outflow:    Eigenvector(rev, maxIter, tol),
		Undirected: Eigenvector(g.Symmetric(), maxIter, tol),
	}
}

func transpose(a [][]float64) [][]float64 {
	n := len(a)
	t := make([][]float64, n)
	for i := range t {
		t[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			t[i][j] = a[j][i]
		}
	}
	return t
}
