package domain

import "sort"

// NetworkEdge connects two treatment groups that can be compared directly.
// Pairs are normalized so A sorts before B.
type NetworkEdge struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Network is the group-adjacency graph for one outcome and follow-up:
// nodes are the group names present at that coordinate, and an edge joins
// two groups whenever some study holds complete raw data for both in the
// same unit.
type Network struct {
	Nodes []string      `json:"nodes"`
	Edges []NetworkEdge `json:"edges"`
}

// Network derives the multi-treatment comparison graph at an outcome and
// follow-up. Nodes and edges are sorted for deterministic output.
func (d *Dataset) Network(outcomeName, followUpName string) (Network, error) {
	outcome, index, err := d.resolveCoordinate(outcomeName, followUpName)
	if err != nil {
		return Network{}, err
	}

	nodes := make(map[string]struct{})
	edges := make(map[NetworkEdge]struct{})
	for _, st := range d.Studies {
		unit, err := st.Unit(outcome.ID, index)
		if err != nil {
			continue
		}
		names := unit.GroupNames()
		for _, name := range names {
			nodes[name] = struct{}{}
		}
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				if unit.Groups[names[i]].Data.Complete() && unit.Groups[names[j]].Data.Complete() {
					edges[NetworkEdge{A: names[i], B: names[j]}] = struct{}{}
				}
			}
		}
	}

	network := Network{
		Nodes: make([]string, 0, len(nodes)),
		Edges: make([]NetworkEdge, 0, len(edges)),
	}
	for name := range nodes {
		network.Nodes = append(network.Nodes, name)
	}
	sort.Strings(network.Nodes)
	for edge := range edges {
		network.Edges = append(network.Edges, edge)
	}
	sort.Slice(network.Edges, func(i, j int) bool {
		if network.Edges[i].A != network.Edges[j].A {
			return network.Edges[i].A < network.Edges[j].A
		}
		return network.Edges[i].B < network.Edges[j].B
	})
	return network, nil
}

// HasEdge reports whether the network connects two groups, in either
// orientation.
func (n Network) HasEdge(a, b string) bool {
	for _, edge := range n.Edges {
		if (edge.A == a && edge.B == b) || (edge.A == b && edge.B == a) {
			return true
		}
	}
	return false
}
