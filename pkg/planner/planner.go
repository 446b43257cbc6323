package planner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/getaxonflow/axonflow-go/pkg/axonflow"
)

// Planner builds and validates plans before execution.
type Planner struct{}

// NewPlanner creates a planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// BuildPlan assembles a plan from steps, assigning IDs and pending
// status where missing, and validates the dependency graph.
func (p *Planner) BuildPlan(query, domain string, steps []Step) (*Plan, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("plan must have at least one step")
	}

	for i := range steps {
		if steps[i].ID == "" {
			steps[i].ID = fmt.Sprintf("step-%d", i+1)
		}
		if steps[i].Status == "" {
			steps[i].Status = StepStatusPending
		}
	}

	if err := p.validateSteps(steps); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	return &Plan{
		ID:        uuid.New().String(),
		Query:     query,
		Domain:    domain,
		Steps:     steps,
		CreatedAt: time.Now(),
	}, nil
}

// FromResponse converts an agent-generated plan into a validated local
// plan.
func (p *Planner) FromResponse(resp *axonflow.PlanResponse) (*Plan, error) {
	if resp == nil {
		return nil, fmt.Errorf("plan response is nil")
	}

	steps := make([]Step, 0, len(resp.Steps))
	for _, s := range resp.Steps {
		steps = append(steps, Step{
			ID:           s.ID,
			Name:         s.Name,
			Type:         s.Type,
			Description:  s.Description,
			Agent:        s.Agent,
			Parameters:   s.Parameters,
			Dependencies: s.DependsOn,
			Status:       StepStatusPending,
		})
	}

	if err := p.validateSteps(steps); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", resp.PlanID, err)
	}

	return &Plan{
		ID:         resp.PlanID,
		Domain:     resp.Domain,
		Steps:      steps,
		Parallel:   resp.Parallel,
		Complexity: resp.Complexity,
		Metadata:   resp.Metadata,
		CreatedAt:  time.Now(),
	}, nil
}

// validateSteps rejects duplicate IDs, unknown dependencies, and
// dependency cycles.
func (p *Planner) validateSteps(steps []Step) error {
	stepIDs := make(map[string]bool, len(steps))
	for _, step := range steps {
		if step.ID == "" {
			return fmt.Errorf("step %q has no ID", step.Name)
		}
		if stepIDs[step.ID] {
			return fmt.Errorf("duplicate step ID: %s", step.ID)
		}
		stepIDs[step.ID] = true
	}

	for _, step := range steps {
		for _, dep := range step.Dependencies {
			if !stepIDs[dep] {
				return fmt.Errorf("step %s depends on unknown step: %s", step.ID, dep)
			}
		}
	}

	return p.checkCycles(steps)
}

// checkCycles runs a DFS over the dependency graph looking for cycles.
func (p *Planner) checkCycles(steps []Step) error {
	graph := make(map[string][]string, len(steps))
	for _, step := range steps {
		graph[step.ID] = step.Dependencies
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(string) bool
	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, dep := range graph[id] {
			if !visited[dep] {
				if visit(dep) {
					return true
				}
			} else if onStack[dep] {
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for id := range graph {
		if !visited[id] && visit(id) {
			return fmt.Errorf("dependency cycle involving step: %s", id)
		}
	}
	return nil
}

// ExecutionLevels returns step IDs grouped into dependency levels: all
// steps in one level have their dependencies satisfied by earlier
// levels and may run in parallel.
func (p *Planner) ExecutionLevels(plan *Plan) ([][]string, error) {
	dependents := make(map[string][]string)
	inDegree := make(map[string]int, len(plan.Steps))

	for _, step := range plan.Steps {
		if _, ok := inDegree[step.ID]; !ok {
			inDegree[step.ID] = 0
		}
		for _, dep := range step.Dependencies {
			dependents[dep] = append(dependents[dep], step.ID)
			inDegree[step.ID]++
		}
	}

	var levels [][]string
	queue := []string{}
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		level := make([]string, len(queue))
		copy(level, queue)
		levels = append(levels, level)
		processed += len(level)

		next := []string{}
		for _, id := range queue {
			for _, dep := range dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		queue = next
	}

	if processed != len(plan.Steps) {
		return nil, fmt.Errorf("cannot order steps: dependency cycle")
	}
	return levels, nil
}
