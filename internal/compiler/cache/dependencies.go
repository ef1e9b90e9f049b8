package cache

import (
	"sort"
	"sync"
)

// SourceDependency is a node of the dependency graph.
type SourceDependency struct {
	SourceID   string
	DependsOn  []string // sources this source references
	DependedBy []string // sources referencing this source
}

// DependencyGraph tracks which sources reference instances of which other
// sources. Cycles are normal: two classes in different sources may refer
// to each other.
type DependencyGraph struct {
	nodes map[string]*SourceDependency
	mu    sync.RWMutex
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*SourceDependency),
	}
}

func (dg *DependencyGraph) node(sourceID string) *SourceDependency {
	n, ok := dg.nodes[sourceID]
	if !ok {
		n = &SourceDependency{SourceID: sourceID}
		dg.nodes[sourceID] = n
	}
	return n
}

// AddSource adds a source without dependencies.
func (dg *DependencyGraph) AddSource(sourceID string) {
	dg.mu.Lock()
	defer dg.mu.Unlock()
	dg.node(sourceID)
}

// AddDependency records that from references to.
func (dg *DependencyGraph) AddDependency(from, to string) {
	dg.mu.Lock()
	defer dg.mu.Unlock()
	dg.addDependency(from, to)
}

func (dg *DependencyGraph) addDependency(from, to string) {
	if from == to {
		return
	}
	f, t := dg.node(from), dg.node(to)
	if !contains(f.DependsOn, to) {
		f.DependsOn = insertSorted(f.DependsOn, to)
	}
	if !contains(t.DependedBy, from) {
		t.DependedBy = insertSorted(t.DependedBy, from)
	}
}

// SetDependencies replaces the outgoing edges of from.
func (dg *DependencyGraph) SetDependencies(from string, to []string) {
	dg.mu.Lock()
	defer dg.mu.Unlock()
	dg.clearDependencies(from)
	for _, target := range to {
		dg.addDependency(from, target)
	}
}

func (dg *DependencyGraph) clearDependencies(from string) {
	n := dg.node(from)
	for _, target := range n.DependsOn {
		if t, ok := dg.nodes[target]; ok {
			t.DependedBy = removeString(t.DependedBy, from)
		}
	}
	n.DependsOn = nil
}

// GetDependencies returns the sources the given source references.
func (dg *DependencyGraph) GetDependencies(sourceID string) []string {
	dg.mu.RLock()
	defer dg.mu.RUnlock()

	if n, exists := dg.nodes[sourceID]; exists {
		return append([]string{}, n.DependsOn...)
	}
	return []string{}
}

// GetDependents returns the sources referencing the given source.
func (dg *DependencyGraph) GetDependents(sourceID string) []string {
	dg.mu.RLock()
	defer dg.mu.RUnlock()

	if n, exists := dg.nodes[sourceID]; exists {
		return append([]string{}, n.DependedBy...)
	}
	return []string{}
}

// GetTransitiveDependents returns every source depending on the given
// source directly or indirectly, sorted. The source itself is excluded
// even when it lies on a cycle.
func (dg *DependencyGraph) GetTransitiveDependents(sourceID string) []string {
	dg.mu.RLock()
	defer dg.mu.RUnlock()

	visited := map[string]bool{sourceID: true}
	var result []string
	queue := []string{sourceID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		n, exists := dg.nodes[current]
		if !exists {
			continue
		}
		for _, dependent := range n.DependedBy {
			if visited[dependent] {
				continue
			}
			visited[dependent] = true
			result = append(result, dependent)
			queue = append(queue, dependent)
		}
	}
	sort.Strings(result)
	return result
}

// RemoveSource removes a source and every edge touching it.
func (dg *DependencyGraph) RemoveSource(sourceID string) {
	dg.mu.Lock()
	defer dg.mu.Unlock()

	n, exists := dg.nodes[sourceID]
	if !exists {
		return
	}
	for _, dependent := range n.DependedBy {
		if d, ok := dg.nodes[dependent]; ok {
			d.DependsOn = removeString(d.DependsOn, sourceID)
		}
	}
	for _, dependency := range n.DependsOn {
		if d, ok := dg.nodes[dependency]; ok {
			d.DependedBy = removeString(d.DependedBy, sourceID)
		}
	}
	delete(dg.nodes, sourceID)
}

// Sources returns every source in the graph, sorted.
func (dg *DependencyGraph) Sources() []string {
	dg.mu.RLock()
	defer dg.mu.RUnlock()

	out := make([]string, 0, len(dg.nodes))
	for id := range dg.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (dg *DependencyGraph) Clear() {
	dg.mu.Lock()
	defer dg.mu.Unlock()
	dg.nodes = make(map[string]*SourceDependency)
}

// Size returns the number of sources in the graph.
func (dg *DependencyGraph) Size() int {
	dg.mu.RLock()
	defer dg.mu.RUnlock()
	return len(dg.nodes)
}

func contains(slice []string, item string) bool {
	i := sort.SearchStrings(slice, item)
	return i < len(slice) && slice[i] == item
}

func insertSorted(slice []string, item string) []string {
	i := sort.SearchStrings(slice, item)
	slice = append(slice, "")
	copy(slice[i+1:], slice[i:])
	slice[i] = item
	return slice
}

func removeString(slice []string, item string) []string {
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if s != item {
			result = append(result, s)
		}
	}
	return result
}
