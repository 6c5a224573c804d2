package process

import (
	"context"
	"fmt"

	"github.com/gluonch/carrot2/component"
	"github.com/gluonch/carrot2/errors"
)

// Stage is a component that transforms the output of the previous stage
type Stage interface {
	component.Component

	Process(ctx context.Context, rc *RequestContext, in any) (any, error)
}

// Pipeline is a Process running a fixed chain of stage components. The query
// text is the input of the first stage; the output of the last stage is the
// result.
type Pipeline struct {
	name        string
	description string
	stages      []string
}

// NewPipeline creates a pipeline over the given stage identifiers
func NewPipeline(name string, stages ...string) *Pipeline {
	return &Pipeline{
		name:   name,
		stages: append([]string(nil), stages...),
	}
}

// WithDescription sets a description and returns the pipeline
func (p *Pipeline) WithDescription(description string) *Pipeline {
	p.description = description
	return p
}

// Name implements Process
func (p *Pipeline) Name() string {
	return p.name
}

// Description returns the pipeline description
func (p *Pipeline) Description() string {
	return p.description
}

// Stages returns the stage identifiers in execution order
func (p *Pipeline) Stages() []string {
	return append([]string(nil), p.stages...)
}

// Initialize checks that every stage is registered and that adjacent stages
// are capability compatible.
func (p *Pipeline) Initialize(ctx component.Context) error {
	if len(p.stages) == 0 {
		return errors.WrapInvalid(errors.Errorf(errors.ErrInvalidConfig, "pipeline %q has no stages", p.name),
			"Pipeline", "Initialize", "stage validation")
	}

	if err := RequireRegistered(ctx, p.stages...); err != nil {
		return err
	}

	explanation, err := component.NewChecker(ctx).CheckChain(p.stages...)
	if err != nil {
		return errors.Wrap(err, "Pipeline", "Initialize", "compatibility check")
	}
	if explanation != "" {
		return errors.WrapInvalid(errors.Errorf(errors.ErrIncompatible, "%s", explanation),
			"Pipeline", "Initialize", "compatibility check")
	}

	return nil
}

// Query implements Process. Each stage is borrowed through rc, run and
// returned before the next stage starts.
func (p *Pipeline) Query(ctx context.Context, rc *RequestContext, query string) (any, error) {
	var data any = query

	for i, id := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapTransient(err, "Pipeline", "Query", fmt.Sprintf("stage %d (%s)", i, id))
		}

		out, err := p.runStage(ctx, rc, id, data)
		if err != nil {
			return nil, errors.Wrap(err, "Pipeline", "Query", fmt.Sprintf("stage %d (%s)", i, id))
		}
		data = out
	}

	return data, nil
}

func (p *Pipeline) runStage(ctx context.Context, rc *RequestContext, id string, in any) (any, error) {
	c, err := rc.Borrow(id)
	if err != nil {
		return nil, err
	}
	defer rc.Return(id, c)

	stage, ok := c.(Stage)
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("component %q (%T) is not a stage", id, c),
			"Pipeline", "Query", "stage assertion")
	}
	return stage.Process(ctx, rc, in)
}

// RequireRegistered returns a MissingDependencyError for the first id that
// has no registered factory.
func RequireRegistered(ctx component.Context, ids ...string) error {
	for _, id := range ids {
		if !ctx.IsRegistered(id) {
			return errors.MissingDependency(id)
		}
	}
	return nil
}
