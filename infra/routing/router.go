// Package routing provides a shortest-path Router over the plant model.
package routing

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/core/services"
)

type edgeKey struct{ from, to int64 }

// Router routes over the points and paths of the plant model with
// Dijkstra's algorithm. Locked paths are left out of the graph. The routing
// tables are rebuilt by UpdateRoutingTopology.
type Router struct {
	objects services.ObjectService

	mu    sync.RWMutex
	graph *simple.WeightedDirectedGraph
	ids   map[string]int64
	names map[int64]string
	paths map[edgeKey]model.Path
}

var _ services.Router = (*Router)(nil)

// New builds a router and computes the initial routing tables.
func New(objects services.ObjectService) *Router {
	r := &Router{objects: objects}
	r.UpdateRoutingTopology()
	return r
}

// UpdateRoutingTopology rebuilds the graph from the current plant model.
func (r *Router) UpdateRoutingTopology() {
	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	ids := map[string]int64{}
	names := map[int64]string{}

	points := r.objects.Points()
	sort.Slice(points, func(i, j int) bool { return points[i].Name < points[j].Name })
	for i, p := range points {
		id := int64(i)
		ids[p.Name] = id
		names[id] = p.Name
		g.AddNode(simple.Node(id))
	}

	edges := map[edgeKey]model.Path{}
	for _, p := range r.objects.Paths() {
		if p.Locked {
			continue
		}
		from, okFrom := ids[p.Source]
		to, okTo := ids[p.Destination]
		if !okFrom || !okTo || from == to {
			continue
		}
		k := edgeKey{from, to}
		if prev, ok := edges[k]; ok && costOf(prev) <= costOf(p) {
			continue
		}
		edges[k] = p
		g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(from), T: simple.Node(to), W: float64(costOf(p))})
	}

	r.mu.Lock()
	r.graph, r.ids, r.names, r.paths = g, ids, names, edges
	r.mu.Unlock()
}

// Route returns the cheapest route between two points. A route to the point
// the vehicle starts on consists of a single step without a path.
func (r *Router) Route(_ model.Vehicle, source, destination string) (model.Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.ids[source]
	if !ok {
		return model.Route{}, false
	}
	dst, ok := r.ids[destination]
	if !ok {
		return model.Route{}, false
	}
	if src == dst {
		return model.Route{Steps: []model.Step{
			model.NewStep(nil, source, destination, model.OrientationUndefined, 0, 0),
		}}, true
	}

	shortest := path.DijkstraFrom(simple.Node(src), r.graph)
	nodes, weight := shortest.To(dst)
	if len(nodes) < 2 || math.IsInf(weight, 1) {
		return model.Route{}, false
	}

	steps := make([]model.Step, 0, len(nodes)-1)
	var costs int64
	for i := 0; i < len(nodes)-1; i++ {
		from, to := nodes[i].ID(), nodes[i+1].ID()
		p := r.paths[edgeKey{from, to}]
		costs += costOf(p)
		steps = append(steps, model.NewStep(&p, r.names[from], r.names[to], model.OrientationForward, i, costs))
	}
	return model.Route{Steps: steps}, true
}

func costOf(p model.Path) int64 {
	if p.Length <= 0 {
		return 1
	}
	return p.Length
}
