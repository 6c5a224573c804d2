package process

import (
	"context"
	"fmt"
	"strings"

	"github.com/gluonch/carrot2/component"
)

// upperStage upper-cases string input
type upperStage struct {
	component.Base
}

func (s *upperStage) Process(_ context.Context, rc *RequestContext, in any) (any, error) {
	text, ok := in.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", in)
	}
	rc.SetAttribute("upper", true)
	return strings.ToUpper(text), nil
}

// splitStage splits text into words
type splitStage struct {
	component.Base
}

func (s *splitStage) Process(_ context.Context, _ *RequestContext, in any) (any, error) {
	return strings.Fields(in.(string)), nil
}

// failingStage always fails
type failingStage struct {
	component.Base
}

func (s *failingStage) Process(context.Context, *RequestContext, any) (any, error) {
	return nil, fmt.Errorf("stage failure")
}

// plain is a component that is not a Stage
type plain struct {
	component.Base
}

func newTestPool(stages map[string]func() component.Component) *component.Pool {
	registry := component.NewRegistry()
	for id, build := range stages {
		build := build
		_ = registry.Register(id, func() (component.Component, error) { return build(), nil })
	}
	return component.NewPool(registry)
}

func textCaps(in, out string) component.Capabilities {
	var caps component.Capabilities
	if in != "" {
		caps.Inputs = []component.Capability{{Name: in}}
	}
	if out != "" {
		caps.Outputs = []component.Capability{{Name: out, Version: "1.0.0"}}
	}
	return caps
}

func stagePool() *component.Pool {
	return newTestPool(map[string]func() component.Component{
		"upper": func() component.Component {
			return &upperStage{Base: component.NewBase(component.Metadata{Name: "Upper"}, textCaps("text", "text"))}
		},
		"split": func() component.Component {
			return &splitStage{Base: component.NewBase(component.Metadata{Name: "Split"}, textCaps("text", "tokens"))}
		},
		"fail": func() component.Component {
			return &failingStage{Base: component.NewBase(component.Metadata{Name: "Fail"}, textCaps("tokens", ""))}
		},
		"plain": func() component.Component {
			return &plain{Base: component.NewBase(component.Metadata{Name: "Plain"}, textCaps("", "text"))}
		},
	})
}
