package story

import (
	"fmt"
	"sort"
)

// Graph is the in-memory sprint aggregate: an arena of records indexed by id
// with parent/children held as id references, never embedded pointers. The
// declared sprint order is preserved for deterministic scheduling.
type Graph struct {
	Sprint  Sprint
	byID    map[string]*Record
	order   []string // declared sprint order, dynamically created stories appended
	orderAt map[string]int
}

// NewGraph builds a graph from a sprint document and validates its
// structural invariants. Any violation aborts the whole load.
func NewGraph(doc *Document) (*Graph, error) {
	g := &Graph{
		Sprint:  doc.Sprint,
		byID:    make(map[string]*Record, len(doc.Stories)),
		orderAt: make(map[string]int, len(doc.Stories)),
	}
	for _, rec := range doc.Stories {
		if rec.ID == "" {
			return nil, fmt.Errorf("story with empty id")
		}
		if _, dup := g.byID[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate story id %s", rec.ID)
		}
		g.byID[rec.ID] = rec
		g.orderAt[rec.ID] = len(g.order)
		g.order = append(g.order, rec.ID)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// validate checks the load-time structural invariants: bidirectional
// parent/child references, resolvable dependency edges, acyclic depends_on,
// and childless validation-testing records.
func (g *Graph) validate() error {
	for _, rec := range g.byID {
		if rec.Parent != "" {
			parent, ok := g.byID[rec.Parent]
			if !ok {
				return fmt.Errorf("story %s references missing parent %s", rec.ID, rec.Parent)
			}
			if !contains(parent.Children, rec.ID) {
				return fmt.Errorf("story %s has parent %s but is not among its children", rec.ID, rec.Parent)
			}
		}
		for _, child := range rec.Children {
			c, ok := g.byID[child]
			if !ok {
				return fmt.Errorf("story %s references missing child %s", rec.ID, child)
			}
			if c.Parent != rec.ID {
				return fmt.Errorf("story %s lists child %s whose parent is %q", rec.ID, child, c.Parent)
			}
		}
		for _, dep := range rec.DependsOn {
			if _, ok := g.byID[dep]; !ok {
				return fmt.Errorf("story %s depends on missing story %s", rec.ID, dep)
			}
		}
		if rec.Type == TypeValidationTesting && len(rec.Children) > 0 {
			return fmt.Errorf("validation-testing story %s must not have children", rec.ID)
		}
	}
	return g.checkDependencyCycles()
}

// checkDependencyCycles runs a visited-set DFS over depends_on edges.
func (g *Graph) checkDependencyCycles() error {
	const (
		white = 0 // unvisited
		gray  = 1 // on stack
		black = 2 // done
	)
	state := make(map[string]int, len(g.byID))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case gray:
			return fmt.Errorf("dependency cycle through story %s", id)
		case black:
			return nil
		}
		state[id] = gray
		for _, dep := range g.byID[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = black
		return nil
	}
	for _, id := range g.order {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the record for id, or nil if absent.
func (g *Graph) Get(id string) *Record {
	return g.byID[id]
}

// Add appends a dynamically created story (remediation spawning) and links
// it to its parent. The new story sorts after all planned stories.
func (g *Graph) Add(rec *Record) error {
	if _, dup := g.byID[rec.ID]; dup {
		return fmt.Errorf("duplicate story id %s", rec.ID)
	}
	if rec.Parent != "" {
		parent, ok := g.byID[rec.Parent]
		if !ok {
			return fmt.Errorf("%w: %s", ErrStoryNotFound, rec.Parent)
		}
		parent.Children = append(parent.Children, rec.ID)
	}
	g.byID[rec.ID] = rec
	g.orderAt[rec.ID] = len(g.order)
	g.order = append(g.order, rec.ID)
	return nil
}

// All returns every record in declared order.
func (g *Graph) All() []*Record {
	out := make([]*Record, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.byID[id])
	}
	return out
}

// ChildStatuses returns the statuses of a record's children in order.
func (g *Graph) ChildStatuses(rec *Record) []Status {
	out := make([]Status, len(rec.Children))
	for i, c := range rec.Children {
		out[i] = g.byID[c].Status
	}
	return out
}

// DependenciesResolved reports whether every depends_on edge of rec points
// at a completed or superseded story.
func (g *Graph) DependenciesResolved(rec *Record) bool {
	for _, dep := range rec.DependsOn {
		if !Resolved(g.byID[dep].Status) {
			return false
		}
	}
	return true
}

// Ready returns all unassigned stories whose dependencies are resolved,
// ordered by declared sprint order with ties broken by ascending id. The
// ordering is deterministic so a crashed-and-restarted worker reproduces
// the same choice.
func (g *Graph) Ready() []*Record {
	var ready []*Record
	for _, id := range g.order {
		rec := g.byID[id]
		if rec.Status != StatusUnassigned {
			continue
		}
		if !g.DependenciesResolved(rec) {
			continue
		}
		ready = append(ready, rec)
	}
	sort.SliceStable(ready, func(i, j int) bool {
		oi, oj := g.orderAt[ready[i].ID], g.orderAt[ready[j].ID]
		if oi != oj {
			return oi < oj
		}
		return CompareIDs(ready[i].ID, ready[j].ID) < 0
	})
	return ready
}

// Document renders the graph back to its persisted shape.
func (g *Graph) Document() *Document {
	return &Document{Sprint: g.Sprint, Stories: g.All()}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
