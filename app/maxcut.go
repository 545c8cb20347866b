package app

import (
	"fmt"
	"sort"

	"github.com/qirin-io/qirin/quantum"
)

type edge struct {
	a, b   string
	weight float64
}

// Maxcut is a weighted graph max-cut problem. Nodes are named; each node maps
// to one qubit in sorted name order, so the qubit layout is independent of
// edge insertion order.
type Maxcut struct {
	nodes map[string]bool
	edges []edge
}

// NewMaxcut creates an empty max-cut problem.
func NewMaxcut() *Maxcut {
	return &Maxcut{nodes: make(map[string]bool)}
}

// AddEdge adds a weighted undirected edge, creating nodes as needed.
func (m *Maxcut) AddEdge(a, b string, weight float64) *Maxcut {
	m.nodes[a] = true
	m.nodes[b] = true
	m.edges = append(m.edges, edge{a: a, b: b, weight: weight})
	return m
}

// Nodes returns the node names in qubit order.
func (m *Maxcut) Nodes() []string {
	out := make([]string, 0, len(m.nodes))
	for n := range m.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Observable builds the Ising objective whose minimum cuts the most weight:
// each edge (a,b,w) contributes w/2 * (Z_a Z_b - I).
func (m *Maxcut) Observable() (*quantum.Observable, error) {
	if len(m.edges) == 0 {
		return nil, fmt.Errorf("max-cut problem has no edges")
	}
	nodes := m.Nodes()
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}
	n := len(nodes)
	var terms []quantum.PauliTerm
	var constant float64
	for _, e := range m.edges {
		if e.a == e.b {
			return nil, fmt.Errorf("self-loop on node %q", e.a)
		}
		terms = append(terms, quantum.PauliTerm{
			Paulis: pauliZ(n, index[e.a], index[e.b]),
			Coeff:  e.weight / 2,
		})
		constant -= e.weight / 2
	}
	terms = append(terms, quantum.PauliTerm{Paulis: identity(n), Coeff: constant})
	return quantum.NewObservable(n, terms)
}

// Interpret returns the sorted names of the nodes on the 1-side of the cut.
func (m *Maxcut) Interpret(bits string) (any, error) {
	nodes := m.Nodes()
	if len(bits) < len(nodes) {
		return nil, fmt.Errorf("bit-string has %d bits, graph has %d nodes", len(bits), len(nodes))
	}
	side := []string{}
	for i, name := range nodes {
		set, err := BitAt(bits, i)
		if err != nil {
			return nil, err
		}
		if set {
			side = append(side, name)
		}
	}
	return side, nil
}

// CutWeight evaluates the total weight crossing the cut described by a
// bit-string.
func (m *Maxcut) CutWeight(bits string) (float64, error) {
	nodes := m.Nodes()
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}
	var total float64
	for _, e := range m.edges {
		sa, err := BitAt(bits, index[e.a])
		if err != nil {
			return 0, err
		}
		sb, err := BitAt(bits, index[e.b])
		if err != nil {
			return 0, err
		}
		if sa != sb {
			total += e.weight
		}
	}
	return total, nil
}
