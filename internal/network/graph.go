package network

import (
	"math"
	"sort"
)

// Weighted directed edge; parallel edges (same From/To, different Key) are allowed
type Edge struct {
	Key    string
	From   string
	To     string
	Weight float64
}

// Graph is a weighted multidigraph whose node set is exactly the tokens of its edges
type Graph struct {
	Nodes []string
	Edges []Edge

	index map[string]int
}

// NewGraph drop self-loops and edges with NaN/Inf weight, negatives clipped to 0
func NewGraph(edges []Edge) *Graph {
	g := &Graph{index: make(map[string]int)}

	set := make(map[string]struct{})
	for _, e := range edges {
		if e.From == "" || e.To == "" || e.From == e.To {
			continue
		}
		w := e.Weight
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			w = 0
		}
		e.Weight = w
		g.Edges = append(g.Edges, e)
		set[e.From] = struct{}{}
		set[e.To] = struct{}{}
	}

	g.Nodes = make([]string, 0, len(set))
	for n := range set {
		g.Nodes = append(g.Nodes, n)
	}
	sort.Strings(g.Nodes)
	for i, n := range g.Nodes {
		g.index[n] = i
	}

	sort.SliceStable(g.Edges, func(i, j int) bool {
		a, b := g.Edges[i], g.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Key < b.Key
	})

	return g
}

func (g *Graph) Len() int { return len(g.Nodes) }

func (g *Graph) Index(node string) (int, bool) {
	i, ok := g.index[node]
	return i, ok
}

// Reverse every edge
func (g *Graph) Reverse() *Graph {
	rev := make([]Edge, len(g.Edges))
	for i, e := range g.Edges {
		rev[i] = Edge{Key: e.Key, From: e.To, To: e.From, Weight: e.Weight}
	}
	return NewGraph(rev)
}

// Dense weighted adjacency, parallel edges summed: A[i][j] = sum w(i->j)
func (g *Graph) Adjacency() [][]float64 {
	n := g.Len()
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
	}
	for _, e := range g.Edges {
		a[g.index[e.From]][g.index[e.To]] += e.Weight
	}
	return a
}

// Undirected view, A[i][j] = A[j][i] = sum of weights of both directions
func (g *Graph) Symmetric() [][]float64 {
	a := g.Adjacency()
	n := len(a)
	s := make([][]float64, n)
	for i := range s {
		s[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			s[i][j] = a[i][j] + a[j][i]
		}
	}
	return s
}

// TotalWeight sum of every edge weight
func (g *Graph) TotalWeight() float64 {
	var s float64
	for _, e := range g.Edges {
		s += e.Weight
	}
	return s
}

type Degrees struct {
	In, Out                 []int
	WeightedIn, WeightedOut []float64
}

// Degrees counting parallel edges
func (g *Graph) Degrees() Degrees {
	n := g.Len()
	d := Degrees{
		In:          make([]int, n),
		Out:         make([]int, n),
		WeightedIn:  make([]float64, n),
		WeightedOut: make([]float64, n),
	}
	for _, e := range g.Edges {
		from, to := g.index[e.From], g.index[e.To]
		d.Out[from]++
		d.In[to]++
		d.WeightedOut[from] += e.Weight
		d.WeightedIn[to] += e.Weight
	}
	return d
}
