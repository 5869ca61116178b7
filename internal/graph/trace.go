package graph

// DefaultTraceDepth bounds how far Trace walks before stopping, so a
// pathological or cyclic edge set can't make it run unbounded.
const DefaultTraceDepth = 20

// TraceResult holds the upstream (dependency) and downstream
// (dependent) DAGs discovered from a starting task, limited to the ids
// actually visited: Upstream maps each id to its parents, Downstream
// maps each id to its children.
type TraceResult struct {
	Upstream   map[string][]string
	Downstream map[string][]string
}

// Trace walks upstream (what id depends on) and downstream (what
// depends on id) up to maxDepth hops, returning both DAGs. maxDepth <=
// 0 uses DefaultTraceDepth.
func (g *Graph) Trace(id string, maxDepth int) TraceResult {
	if maxDepth <= 0 {
		maxDepth = DefaultTraceDepth
	}
	return TraceResult{
		Upstream:   g.walk(id, maxDepth, g.parents),
		Downstream: g.walk(id, maxDepth, g.children),
	}
}

func (g *Graph) walk(start string, maxDepth int, edges map[string][]string) map[string][]string {
	visited := map[string]bool{start: true}
	result := make(map[string][]string)
	frontier := []string{start}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			neighbors := edges[id]
			if len(neighbors) == 0 {
				continue
			}
			result[id] = neighbors
			for _, n := range neighbors {
				if !visited[n] {
					visited[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	return result
}
