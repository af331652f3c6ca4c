package graph

import (
	"container/list"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// processingQueue holds nodes whose in-degree has dropped to zero.
type processingQueue struct {
	queue *list.List
}

func newProcessingQueue(nodes []string) *processingQueue {
	pq := &processingQueue{queue: list.New()}
	for _, n := range nodes {
		pq.queue.PushBack(n)
	}
	return pq
}

func (pq *processingQueue) enqueue(node string) {
	pq.queue.PushBack(node)
}

func (pq *processingQueue) dequeue() (string, bool) {
	if pq.queue.Len() == 0 {
		return "", false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(string), true
}

// CalculateInDegrees computes the number of incoming edges for each node.
func (g *Graph) CalculateInDegrees() map[string]int {
	inDegree := make(map[string]int, len(g.Nodes))
	for name := range g.Nodes {
		inDegree[name] = 0
	}
	for _, children := range g.Children {
		for _, child := range children {
			inDegree[child]++
		}
	}
	return inDegree
}

// ErrCycleDetected is returned when the dependency graph contains a cycle,
// making topological sorting impossible.
var ErrCycleDetected = errors.New("cycle detected in dependency graph")

// CycleInfo describes the nodes Kahn's algorithm could not order.
type CycleInfo struct {
	TotalNodes        int
	ProcessedNodes    int
	UnprocessedNodes  []string // part of or blocked by a cycle
	CycleParticipants []string // subset of UnprocessedNodes that lie on a cycle
	CyclePath         []string // e.g. [A, B, C, A]
}

// CycleError wraps ErrCycleDetected with the tables involved.
type CycleError struct {
	Info *CycleInfo
}

func (e *CycleError) Error() string {
	msg := fmt.Sprintf("%s: %d of %d tables could not be ordered",
		ErrCycleDetected.Error(), len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	if len(e.Info.CyclePath) > 0 {
		msg += fmt.Sprintf("\nCycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}

	if blocked := e.Info.Blocked(); len(blocked) > 0 {
		msg += fmt.Sprintf("\nTables blocked by cycle: %s", strings.Join(blocked, ", "))
	}

	return msg
}

func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// Blocked returns the unprocessed tables that are not themselves on a cycle.
func (c *CycleInfo) Blocked() []string {
	participant := make(map[string]bool, len(c.CycleParticipants))
	for _, p := range c.CycleParticipants {
		participant[p] = true
	}
	var blocked []string
	for _, u := range c.UnprocessedNodes {
		if !participant[u] {
			blocked = append(blocked, u)
		}
	}
	return blocked
}

// kahn runs Kahn's algorithm with a name-sorted queue so the order is stable.
func (g *Graph) kahn() (order []string, processed map[string]bool) {
	inDegree := g.CalculateInDegrees()

	var ready []string
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)
	queue := newProcessingQueue(ready)

	processed = make(map[string]bool, len(g.Nodes))
	for {
		node, ok := queue.dequeue()
		if !ok {
			break
		}
		order = append(order, node)
		processed[node] = true

		children := append([]string(nil), g.GetChildren(node)...)
		sort.Strings(children)
		for _, child := range children {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.enqueue(child)
			}
		}
	}
	return order, processed
}

// DetectIncompleteProcessing returns nil when every node can be ordered, or
// a description of the cycle otherwise.
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	_, processed := g.kahn()
	if len(processed) == len(g.Nodes) {
		return nil
	}

	unprocessedSet := make(map[string]bool)
	var unprocessed []string
	for _, name := range g.AllNodes() {
		if !processed[name] {
			unprocessed = append(unprocessed, name)
			unprocessedSet[name] = true
		}
	}

	var participants []string
	for _, node := range unprocessed {
		if g.canReachSelf(node, unprocessedSet) {
			participants = append(participants, node)
		}
	}

	var cyclePath []string
	if len(participants) > 0 {
		cyclePath = g.FindCyclePath(participants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        len(g.Nodes),
		ProcessedNodes:    len(processed),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: participants,
		CyclePath:         cyclePath,
	}
}

// HasCycle returns true if the dependency graph contains a cycle.
func (g *Graph) HasCycle() bool {
	return g.DetectIncompleteProcessing() != nil
}

// FindCyclePath returns a cycle through start within allowedNodes, with
// start at both ends, or nil.
func (g *Graph) FindCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := make(map[string]bool)
	path := []string{start}
	if g.dfsFindPath(start, start, visited, allowedNodes, &path) {
		return path
	}
	return nil
}

func (g *Graph) dfsFindPath(current, target string, visited, allowedNodes map[string]bool, path *[]string) bool {
	children := append([]string(nil), g.GetChildren(current)...)
	sort.Strings(children)
	for _, child := range children {
		if !allowedNodes[child] {
			continue
		}
		if child == target {
			*path = append(*path, target)
			return true
		}
		if visited[child] {
			continue
		}

		visited[child] = true
		*path = append(*path, child)
		if g.dfsFindPath(child, target, visited, allowedNodes, path) {
			return true
		}
		*path = (*path)[:len(*path)-1]
	}
	return false
}

func (g *Graph) canReachSelf(start string, allowedNodes map[string]bool) bool {
	visited := make(map[string]bool)
	return g.dfsCanReach(start, start, visited, allowedNodes, true)
}

func (g *Graph) dfsCanReach(current, target string, visited, allowedNodes map[string]bool, isStart bool) bool {
	if current == target && !isStart {
		return true
	}
	if visited[current] || !allowedNodes[current] {
		return false
	}
	visited[current] = true

	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowedNodes, false) {
			return true
		}
	}
	return false
}

// TopologicalSort returns tables parents-first. Ties are broken by name.
// Returns a *CycleError when tables reference each other in a loop.
func (g *Graph) TopologicalSort() ([]string, error) {
	order, processed := g.kahn()
	if len(processed) != len(g.Nodes) {
		return nil, &CycleError{Info: g.DetectIncompleteProcessing()}
	}
	return order, nil
}
