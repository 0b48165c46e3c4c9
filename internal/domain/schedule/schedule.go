// Package schedule validates and orders subtask DAGs: cycle detection,
// topological ordering, and grouping into parallel-eligible levels.
package schedule

import (
	"fmt"
	"strings"

	"github.com/Bizzy211/heimdall/internal/domain"
	"github.com/Bizzy211/heimdall/internal/domain/task"
)

// CycleError reports a dependency cycle. A DAG containing a cycle must
// never produce an execution plan, so validation fails loudly with every
// node in the offending cycle rather than degrading to an arbitrary order.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Nodes, " -> "))
}

// Plan is a validated execution ordering for a set of tasks.
type Plan struct {
	// Order is a valid sequential topological order of task IDs.
	Order []string `json:"order"`
	// Levels groups task IDs by maximal dependency depth. All tasks within
	// a level may run concurrently; levels execute strictly in increasing
	// order with a barrier between them.
	Levels [][]string `json:"levels"`
}

// Build validates the dependency graph and computes both the topological
// order and the parallel levels. It returns domain.ErrNotFound (wrapped)
// when a dependency references an unknown task ID, and *CycleError when
// the graph contains a cycle.
func Build(tasks []task.Task) (*Plan, error) {
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
	}

	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("task %s depends on unknown task %s: %w", t.ID, dep, domain.ErrNotFound)
			}
		}
	}

	order, err := topoSort(tasks, index)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Order:  order,
		Levels: levels(tasks, index, order),
	}, nil
}

// dfs colors for cycle detection.
const (
	white = iota // unvisited
	grey         // on the current path
	black        // fully explored
)

// frame is one entry of the explicit DFS stack. Recursion is bounded by an
// explicit stack so agent-supplied graphs cannot hit stack depth limits.
type frame struct {
	node int
	next int // next dependency index to visit
}

// topoSort runs an iterative DFS over the dependency edges. Visiting a grey
// node means a back-edge: the current path from that node onward is the
// cycle. Nodes finish in dependency-first order, so the finish sequence is
// already a valid topological order.
func topoSort(tasks []task.Task, index map[string]int) ([]string, error) {
	color := make([]int, len(tasks))
	order := make([]string, 0, len(tasks))

	for start := range tasks {
		if color[start] != white {
			continue
		}

		stack := []frame{{node: start}}
		color[start] = grey

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := tasks[top.node].Dependencies

			if top.next < len(deps) {
				dep := index[deps[top.next]]
				top.next++

				switch color[dep] {
				case white:
					color[dep] = grey
					stack = append(stack, frame{node: dep})
				case grey:
					return nil, &CycleError{Nodes: cycleFrom(tasks, stack, dep)}
				}
				continue
			}

			color[top.node] = black
			order = append(order, tasks[top.node].ID)
			stack = stack[:len(stack)-1]
		}
	}

	return order, nil
}

// cycleFrom extracts the cycle node IDs from the DFS stack, starting at the
// frame holding the revisited node and closing the loop back to it.
func cycleFrom(tasks []task.Task, stack []frame, revisited int) []string {
	start := 0
	for i, f := range stack {
		if f.node == revisited {
			start = i
			break
		}
	}

	var nodes []string
	for _, f := range stack[start:] {
		nodes = append(nodes, tasks[f.node].ID)
	}
	nodes = append(nodes, tasks[revisited].ID)
	return nodes
}

// levels computes level(t) = 0 for dependency-free tasks, else
// 1 + max(level(dep)). Walking tasks in topological order guarantees every
// dependency's level is known before its dependents.
func levels(tasks []task.Task, index map[string]int, order []string) [][]string {
	level := make(map[string]int, len(tasks))
	maxLevel := 0

	for _, id := range order {
		t := tasks[index[id]]
		l := 0
		for _, dep := range t.Dependencies {
			if dl := level[dep] + 1; dl > l {
				l = dl
			}
		}
		level[id] = l
		if l > maxLevel {
			maxLevel = l
		}
	}

	out := make([][]string, maxLevel+1)
	// Group in input order, not topological order, so levels are stable
	// with respect to how tasks were submitted.
	for _, t := range tasks {
		l := level[t.ID]
		out[l] = append(out[l], t.ID)
	}
	return out
}
