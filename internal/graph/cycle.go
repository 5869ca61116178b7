package graph

// MaxCycleCheckDepth bounds the reverse-BFS WouldCreateCycle performs
// so pathological dependency fan-out can't make dep-add hang.
const MaxCycleCheckDepth = 500

// WouldCreateCycle reports whether adding the edge child->parent would
// close a cycle: true iff child is already reachable from parent by
// walking the existing parent edges (i.e. parent already, transitively,
// depends on child).
func (g *Graph) WouldCreateCycle(child, parent string) bool {
	if child == parent {
		return true
	}

	visited := map[string]bool{parent: true}
	frontier := []string{parent}

	for depth := 0; depth < MaxCycleCheckDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, grandparent := range g.parents[id] {
				if grandparent == child {
					return true
				}
				if !visited[grandparent] {
					visited[grandparent] = true
					next = append(next, grandparent)
				}
			}
		}
		frontier = next
	}
	return false
}
