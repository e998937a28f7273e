package sync

import (
	"context"
	"fmt"

	"partsync/internal/logger"
)

// Stage is one named unit of a sync run. DependsOn lists the stage names
// that must have completed without a fetch-level failure before this
// stage may run.
type Stage struct {
	Name      string
	DependsOn []string
	Run       func(ctx context.Context) []string
}

// Pipeline executes stages in explicit dependency order. The order is
// validated up front with a topological sort, so a cycle or an unknown
// dependency fails the whole run before any stage touches the network.
// A stage whose run produced only error messages counts as failed and
// its dependents are skipped, but unrelated stages still proceed.
type Pipeline struct {
	stages []Stage
	logger *logger.Logger
}

func NewPipeline(logger *logger.Logger, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, logger: logger}
}

// Run executes every runnable stage and returns the combined messages,
// prefixed per stage.
func (p *Pipeline) Run(ctx context.Context) ([]string, error) {
	order, err := p.sort()
	if err != nil {
		return nil, err
	}

	failed := make(map[string]bool)
	var msgs []string
	for _, stage := range order {
		skip := ""
		for _, dep := range stage.DependsOn {
			if failed[dep] {
				skip = dep
				break
			}
		}
		if skip != "" {
			failed[stage.Name] = true
			msgs = append(msgs, ErrorMsg(stage.Name,
				fmt.Errorf("skipped, dependency %s failed", skip)))
			continue
		}

		if p.logger != nil {
			p.logger.Info("running sync stage: %s", stage.Name)
		}
		stageMsgs := stage.Run(ctx)
		msgs = append(msgs, stageMsgs...)
		if allErrors(stageMsgs) {
			failed[stage.Name] = true
		}
	}
	return msgs, nil
}

// sort orders the stages with Kahn's algorithm and rejects unknown
// dependencies and cycles.
func (p *Pipeline) sort() ([]Stage, error) {
	byName := make(map[string]Stage, len(p.stages))
	for _, stage := range p.stages {
		if _, dup := byName[stage.Name]; dup {
			return nil, fmt.Errorf("duplicate stage %q", stage.Name)
		}
		byName[stage.Name] = stage
	}

	indegree := make(map[string]int, len(p.stages))
	dependents := make(map[string][]string, len(p.stages))
	for _, stage := range p.stages {
		if _, ok := indegree[stage.Name]; !ok {
			indegree[stage.Name] = 0
		}
		for _, dep := range stage.DependsOn {
			if _, known := byName[dep]; !known {
				return nil, fmt.Errorf("stage %q depends on unknown stage %q", stage.Name, dep)
			}
			indegree[stage.Name]++
			dependents[dep] = append(dependents[dep], stage.Name)
		}
	}

	// Seed the queue in declaration order so runs are deterministic.
	var queue []string
	for _, stage := range p.stages {
		if indegree[stage.Name] == 0 {
			queue = append(queue, stage.Name)
		}
	}

	var order []Stage
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, byName[name])
		for _, next := range dependents[name] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(p.stages) {
		return nil, fmt.Errorf("stage dependency cycle detected")
	}
	return order, nil
}

func allErrors(msgs []string) bool {
	if len(msgs) == 0 {
		return false
	}
	for _, msg := range msgs {
		if !IsErrorMsg(msg) {
			return false
		}
	}
	return true
}
