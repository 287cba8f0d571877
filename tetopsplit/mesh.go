package tetopsplit

// Conn couples two tetrahedra of the global mesh across a shared face,
// with one geometric hop scale per direction. A zero scale suppresses
// hops in that direction.
type Conn struct {
	A, B             int
	ScaleAB, ScaleBA float64
}

// Mesh is the global-mesh description this layer consumes: element
// volumes, their face adjacency, and the compartment definition index the
// elements instantiate. Geometry construction and loading happen upstream;
// this is the already-digested form.
type Mesh struct {
	Comp  int
	Vols  []float64
	Conns []Conn
}

// ChainMesh builds a 1-D chain of n equal elements with symmetric
// coupling, a convenient topology for demos and tests.
func ChainMesh(n int, vol, scale float64, comp int) Mesh {
	m := Mesh{Comp: comp, Vols: make([]float64, n)}
	for i := range m.Vols {
		m.Vols[i] = vol
	}
	for i := 0; i+1 < n; i++ {
		m.Conns = append(m.Conns, Conn{A: i, B: i + 1, ScaleAB: scale, ScaleBA: scale})
	}
	return m
}
