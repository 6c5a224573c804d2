package component

import (
	"fmt"
	"strings"

	"github.com/gluonch/carrot2/errors"
)

// Checker answers compatibility questions between registered components by
// borrowing instances and comparing their declared capabilities. Every
// instance it borrows is returned before the call completes.
type Checker struct {
	borrower Borrower
}

// NewChecker creates a checker that borrows through b
func NewChecker(b Borrower) *Checker {
	return &Checker{borrower: b}
}

// Compatible reports whether the output of from can feed the input of to
func (c *Checker) Compatible(from, to string) (bool, error) {
	m, err := c.mismatch(from, to)
	if err != nil {
		return false, errors.Wrap(err, "Checker", "Compatible", "capability comparison")
	}
	return m.Empty(), nil
}

// Explain describes why from cannot feed to. It returns the empty string
// when the components are compatible.
func (c *Checker) Explain(from, to string) (string, error) {
	m, err := c.mismatch(from, to)
	if err != nil {
		return "", errors.Wrap(err, "Checker", "Explain", "capability comparison")
	}
	if m.Empty() {
		return "", nil
	}
	return fmt.Sprintf("%s -> %s: %s", from, to, m), nil
}

// CheckChain checks every adjacent pair of ids and returns the joined
// explanations of all incompatible pairs, or the empty string.
func (c *Checker) CheckChain(ids ...string) (string, error) {
	var problems []string
	for i := 1; i < len(ids); i++ {
		explanation, err := c.Explain(ids[i-1], ids[i])
		if err != nil {
			return "", err
		}
		if explanation != "" {
			problems = append(problems, explanation)
		}
	}
	return strings.Join(problems, "\n"), nil
}

func (c *Checker) mismatch(from, to string) (Mismatch, error) {
	upstream, err := c.borrower.Borrow(from)
	if err != nil {
		return Mismatch{}, err
	}
	defer c.borrower.Return(from, upstream)

	downstream, err := c.borrower.Borrow(to)
	if err != nil {
		return Mismatch{}, err
	}
	defer c.borrower.Return(to, downstream)

	return Match(upstream.Capabilities(), downstream.Capabilities()), nil
}
