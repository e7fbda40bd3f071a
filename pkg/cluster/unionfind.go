package cluster

// UnionFind is a disjoint-set forest over dense ids 0..n-1
type UnionFind struct {
	parent []int
	rank   []int
}

// NewUnionFind creates n singleton sets
func NewUnionFind(n int) *UnionFind {
	uf := &UnionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

// Len returns the number of elements
func (uf *UnionFind) Len() int {
	return len(uf.parent)
}

// Find returns the root of x and compresses the path to it
func (uf *UnionFind) Find(x int) int {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		next := uf.parent[x]
		uf.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets of a and b by rank. It returns false if they were already joined.
func (uf *UnionFind) Union(a, b int) bool {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return false
	}

	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
	return true
}

// Connected reports whether a and b share a set
func (uf *UnionFind) Connected(a, b int) bool {
	return uf.Find(a) == uf.Find(b)
}

// Sets returns members of every set, ordered by each set's smallest member.
// Members within a set are ascending.
func (uf *UnionFind) Sets() [][]int {
	index := make(map[int]int)
	var sets [][]int
	for i := range uf.parent {
		root := uf.Find(i)
		pos, ok := index[root]
		if !ok {
			pos = len(sets)
			index[root] = pos
			sets = append(sets, nil)
		}
		sets[pos] = append(sets[pos], i)
	}
	return sets
}
