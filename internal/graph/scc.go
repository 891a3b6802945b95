package graph

// components labels every node with its strongly connected component using
// an iterative Tarjan, so deep definition chains cannot overflow the stack.
// It returns the per-node component label, the size of each component, and
// the number of components with more than one node.
func (d *dense) components() (comp []int32, sizes []int, cyclic int) {
	n := d.len()
	index := make([]int32, n)
	low := make([]int32, n)
	onStack := make([]bool, n)
	comp = make([]int32, n)
	for i := range index {
		index[i] = -1
	}

	type callFrame struct {
		node  int32
		edge  int
		phase int // 0=enter, 1=scan edges, 2=after child, 3=finish
		child int32
	}

	var counter int32
	var stack []int32
	var calls []callFrame

	for start := range n {
		if index[start] != -1 {
			continue
		}
		calls = append(calls[:0], callFrame{node: int32(start)})

		for len(calls) > 0 {
			f := &calls[len(calls)-1]
			switch f.phase {
			case 0:
				index[f.node] = counter
				low[f.node] = counter
				counter++
				stack = append(stack, f.node)
				onStack[f.node] = true
				f.phase = 1

			case 1:
				pushed := false
				for f.edge < len(d.adj[f.node]) {
					w := d.adj[f.node][f.edge]
					f.edge++
					if index[w] == -1 {
						f.phase = 2
						f.child = w
						calls = append(calls, callFrame{node: w})
						pushed = true
						break
					}
					if onStack[w] && index[w] < low[f.node] {
						low[f.node] = index[w]
					}
				}
				if !pushed {
					f.phase = 3
				}

			case 2:
				if low[f.child] < low[f.node] {
					low[f.node] = low[f.child]
				}
				f.phase = 1

			case 3:
				if low[f.node] == index[f.node] {
					label := int32(len(sizes))
					size := 0
					for {
						w := stack[len(stack)-1]
						stack = stack[:len(stack)-1]
						onStack[w] = false
						comp[w] = label
						size++
						if w == f.node {
							break
						}
					}
					sizes = append(sizes, size)
					if size > 1 {
						cyclic++
					}
				}
				calls = calls[:len(calls)-1]
			}
		}
	}
	return comp, sizes, cyclic
}

// largestWeakComponent returns the size of the largest weakly connected
// component, ignoring edge direction.
func (d *dense) largestWeakComponent() int {
	n := d.len()
	if n == 0 {
		return 0
	}
	parent := make([]int32, n)
	for i := range parent {
		parent[i] = int32(i)
	}
	find := func(x int32) int32 {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for v, row := range d.adj {
		for _, w := range row {
			a, b := find(int32(v)), find(w)
			if a != b {
				parent[a] = b
			}
		}
	}

	sizes := make([]int, n)
	best := 0
	for v := range n {
		r := find(int32(v))
		sizes[r]++
		if sizes[r] > best {
			best = sizes[r]
		}
	}
	return best
}
