package component

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/gluonch/carrot2/errors"
)

// MatchPolicy selects how a component's inputs are matched against the
// outputs of the component feeding it.
type MatchPolicy int

const (
	// MatchSuperset accepts any upstream that offers at least the required inputs
	MatchSuperset MatchPolicy = iota
	// MatchExact requires the upstream outputs to be exactly the required inputs
	MatchExact
)

// String returns the policy name
func (p MatchPolicy) String() string {
	switch p {
	case MatchSuperset:
		return "superset"
	case MatchExact:
		return "exact"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (p MatchPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *MatchPolicy) UnmarshalText(text []byte) error {
	policy, err := ParseMatchPolicy(string(text))
	if err != nil {
		return err
	}
	*p = policy
	return nil
}

// ParseMatchPolicy parses a policy name. The empty string selects MatchSuperset.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "superset":
		return MatchSuperset, nil
	case "exact":
		return MatchExact, nil
	default:
		return MatchSuperset, errors.WrapInvalid(
			fmt.Errorf("unknown match policy %q", s), "MatchPolicy", "Parse", "policy lookup")
	}
}

// Capability is a named data contract. On outputs Version is a semantic
// version; on inputs it is an optional version constraint such as ">=1.2".
type Capability struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

func (c Capability) String() string {
	if c.Version == "" {
		return c.Name
	}
	return c.Name + "@" + c.Version
}

// Capabilities is the declared contract of a component
type Capabilities struct {
	Inputs      []Capability `json:"inputs,omitempty"`
	Outputs     []Capability `json:"outputs,omitempty"`
	InputPolicy MatchPolicy  `json:"input_policy"`
}

// VersionMismatch records an input whose version constraint the upstream
// output does not satisfy.
type VersionMismatch struct {
	Required Capability
	Offered  Capability
	Reason   string
}

// Mismatch is the difference between what a downstream component requires and
// what an upstream component offers. The zero value means compatible.
type Mismatch struct {
	Missing    []Capability
	Unexpected []Capability
	Versions   []VersionMismatch
}

// Empty reports whether the components are compatible
func (m Mismatch) Empty() bool {
	return len(m.Missing) == 0 && len(m.Unexpected) == 0 && len(m.Versions) == 0
}

// String renders the mismatch for humans. It is empty when compatible.
func (m Mismatch) String() string {
	if m.Empty() {
		return ""
	}

	var parts []string
	if len(m.Missing) > 0 {
		parts = append(parts, "missing inputs: "+joinCapabilities(m.Missing))
	}
	if len(m.Versions) > 0 {
		versions := make([]string, 0, len(m.Versions))
		for _, v := range m.Versions {
			versions = append(versions, fmt.Sprintf("%s requires %q, offered %q (%s)",
				v.Required.Name, v.Required.Version, v.Offered.Version, v.Reason))
		}
		parts = append(parts, "version mismatch: "+strings.Join(versions, ", "))
	}
	if len(m.Unexpected) > 0 {
		parts = append(parts, "unexpected outputs: "+joinCapabilities(m.Unexpected))
	}
	return strings.Join(parts, "; ")
}

func joinCapabilities(caps []Capability) string {
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}

// Match compares the outputs of upstream against the inputs of downstream
// under the downstream component's input policy.
func Match(upstream, downstream Capabilities) Mismatch {
	var m Mismatch

	offered := make(map[string]Capability, len(upstream.Outputs))
	for _, out := range upstream.Outputs {
		offered[out.Name] = out
	}

	required := make(map[string]struct{}, len(downstream.Inputs))
	for _, in := range downstream.Inputs {
		required[in.Name] = struct{}{}

		out, ok := offered[in.Name]
		if !ok {
			m.Missing = append(m.Missing, in)
			continue
		}
		if reason := checkVersion(in.Version, out.Version); reason != "" {
			m.Versions = append(m.Versions, VersionMismatch{Required: in, Offered: out, Reason: reason})
		}
	}

	if downstream.InputPolicy == MatchExact {
		for _, out := range upstream.Outputs {
			if _, ok := required[out.Name]; !ok {
				m.Unexpected = append(m.Unexpected, out)
			}
		}
	}

	return m
}

// checkVersion returns a non-empty reason when offered does not satisfy constraint
func checkVersion(constraint, offered string) string {
	if constraint == "" {
		return ""
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "invalid constraint"
	}
	if offered == "" {
		return "no version offered"
	}
	v, err := semver.NewVersion(offered)
	if err != nil {
		return "invalid version"
	}
	if ok, errs := c.Validate(v); !ok {
		if len(errs) > 0 {
			return errs[0].Error()
		}
		return "constraint not satisfied"
	}
	return ""
}
