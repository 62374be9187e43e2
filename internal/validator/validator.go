package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/callflow/pkg/pathway"
)

// Report lists the findings of a pathway crawl.
// None of them stop a pathway from being served: a dangling first destination
// just never advances, and unreachable nodes are only reachable through set_call_node.
type Report struct {
	Entry string
	// Dangling maps a node to the destinations that name no node.
	Dangling map[string][]string
	// Unreachable lists nodes the first-destination walk from Entry never visits.
	Unreachable []string
	// Terminal lists nodes without any destination.
	Terminal []string
	// Walk is the first-destination path from Entry, stopping at the first repeat.
	Walk []string

	order []string
}

// Clean reports whether the crawl found nothing worth a warning.
func (r Report) Clean() bool {
	return len(r.Dangling) == 0 && len(r.Unreachable) == 0
}

// Err folds the warnings into one error, or nil when the report is clean.
func (r Report) Err() error {
	if r.Clean() {
		return nil
	}
	var problems []string
	for _, n := range r.danglingNodes() {
		problems = append(problems, fmt.Sprintf("Dangling destination(s) on '%s': %s", n, strings.Join(r.Dangling[n], ", ")))
	}
	for _, n := range r.Unreachable {
		problems = append(problems, fmt.Sprintf("Unreachable node: '%s'", n))
	}
	return fmt.Errorf("found %d problems:\n- %s", len(problems), strings.Join(problems, "\n- "))
}

func (r Report) danglingNodes() []string {
	var names []string
	for _, n := range r.order {
		if _, ok := r.Dangling[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// ValidateGraph crawls g from its entry node.
// It fails only when the pathway has no nodes at all.
func ValidateGraph(g *pathway.Graph) (Report, error) {
	entry := g.Start()
	if entry == "" {
		return Report{}, fmt.Errorf("pathway has no nodes")
	}

	r := Report{Entry: entry, Dangling: map[string][]string{}}
	for _, n := range g.Nodes() {
		r.order = append(r.order, n.Name)
		if len(n.Destinations) == 0 {
			r.Terminal = append(r.Terminal, n.Name)
		}
		for _, d := range n.Destinations {
			if !g.Has(d) {
				r.Dangling[n.Name] = append(r.Dangling[n.Name], d)
			}
		}
	}

	// Only the first destination is ever taken, so reachability follows that edge alone.
	visited := make(map[string]bool)
	current := entry
	for !visited[current] {
		visited[current] = true
		r.Walk = append(r.Walk, current)
		next, ok := g.Next(current)
		if !ok {
			break
		}
		current = next
	}

	for _, n := range r.order {
		if !visited[n] {
			r.Unreachable = append(r.Unreachable, n)
		}
	}
	return r, nil
}
