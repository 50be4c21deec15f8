package core

import (
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
)

// Topology builds the directed site graph for the case study. Treatment
// units contribute internal edges from the inlet to both outlet ports, so
// reachability follows the physical water path.
func (cs *CaseStudy) Topology() (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed())

	for id := range cs.SiteKinds() {
		if err := g.AddVertex(id); err != nil {
			return nil, fmt.Errorf("topology: add site %q: %w", id, err)
		}
	}
	for _, u := range cs.Treatment {
		if err := g.AddEdge(u.ID, u.TreatedPortID()); err != nil {
			return nil, fmt.Errorf("topology: unit %q treated port: %w", u.ID, err)
		}
		if err := g.AddEdge(u.ID, u.ConcentratePortID()); err != nil {
			return nil, fmt.Errorf("topology: unit %q concentrate port: %w", u.ID, err)
		}
	}
	for _, a := range cs.Arcs {
		if err := g.AddEdge(a.From, a.To); err != nil {
			return nil, fmt.Errorf("topology: arc %s: %w", a.Key(), err)
		}
	}
	return g, nil
}

// validateTopology checks the network as a graph: every pad must reach at
// least one sink, and every treatment outlet port must have somewhere to
// send its stream.
func (cs *CaseStudy) validateTopology() error {
	g, err := cs.Topology()
	if err != nil {
		return err
	}
	kinds := cs.SiteKinds()

	for _, p := range cs.Pads {
		reached := false
		err := graph.DFS(g, p.ID, func(id string) bool {
			switch kinds[id] {
			case SiteDisposal, SiteReuse, SiteTreatment:
				reached = true
				return true // stop traversal
			}
			return false
		})
		if err != nil {
			return fmt.Errorf("topology: walk from pad %q: %w", p.ID, err)
		}
		if !reached {
			return fmt.Errorf("pad %q cannot reach any disposal, reuse or treatment site", p.ID)
		}
	}

	adjacency, err := g.AdjacencyMap()
	if err != nil {
		return fmt.Errorf("topology: adjacency: %w", err)
	}
	for _, u := range cs.Treatment {
		for _, port := range []string{u.TreatedPortID(), u.ConcentratePortID()} {
			if len(adjacency[port]) == 0 {
				return fmt.Errorf("treatment unit %q: outlet %q has no outgoing arc", u.ID, port)
			}
		}
	}
	return nil
}

// TreatmentFedDisposals returns the IDs of disposal sites reachable from any
// treatment outlet port, sorted. These are the disposals whose capacity the
// maximum-recovery strategy relaxes by default in its second stage.
func (cs *CaseStudy) TreatmentFedDisposals() ([]string, error) {
	g, err := cs.Topology()
	if err != nil {
		return nil, err
	}
	kinds := cs.SiteKinds()

	fed := make(map[string]bool)
	for _, u := range cs.Treatment {
		for _, port := range []string{u.TreatedPortID(), u.ConcentratePortID()} {
			err := graph.DFS(g, port, func(id string) bool {
				if kinds[id] == SiteDisposal {
					fed[id] = true
				}
				return false
			})
			if err != nil {
				return nil, fmt.Errorf("walk from outlet %q: %w", port, err)
			}
		}
	}

	ids := make([]string, 0, len(fed))
	for id := range fed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
