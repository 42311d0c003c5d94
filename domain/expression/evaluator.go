// Package expression implements the condition language attached to nodes:
// a single equality between two operands, each a literal or a lookup into
// the selected configuration.
package expression

import (
	"errors"
	"fmt"
	"strings"

	"treeservice/domain/core/valueobjects"
)

// ErrUnbound is the failure reason when no configuration is available.
var ErrUnbound = errors.New("no configuration bound")

// Context is the environment a condition is evaluated in.
type Context struct {
	attrs valueobjects.Attributes
	bound bool
}

// Bound creates a context backed by a configuration's attributes
func Bound(attrs valueobjects.Attributes) Context {
	if attrs == nil {
		attrs = valueobjects.Attributes{}
	}
	return Context{attrs: attrs, bound: true}
}

// Unbound creates a context with no configuration
func Unbound() Context {
	return Context{}
}

// IsBound reports whether a configuration is available
func (c Context) IsBound() bool { return c.bound }

// Result is the outcome of one evaluation: Resolved(bool) or Failed.
type Result struct {
	err   error
	value bool
}

// Resolved creates a successful result
func Resolved(v bool) Result { return Result{value: v} }

// Failed creates a failed result carrying the reason
func Failed(err error) Result {
	if err == nil {
		err = errors.New("evaluation failed")
	}
	return Result{err: err}
}

// IsResolved reports whether evaluation produced a value
func (r Result) IsResolved() bool { return r.err == nil }

// Value returns the resolved value; false for failures
func (r Result) Value() bool { return r.err == nil && r.value }

// Err returns the failure reason, nil when resolved
func (r Result) Err() error { return r.err }

// Truthy collapses the result to a boolean. Failures count as false.
func (r Result) Truthy() bool { return r.Value() }

func (r Result) String() string {
	if r.err != nil {
		return fmt.Sprintf("Failed(%v)", r.err)
	}
	return fmt.Sprintf("Resolved(%t)", r.value)
}

// Evaluate evaluates condition text against ctx. It never panics.
func Evaluate(text string, ctx Context) Result {
	if !ctx.bound {
		return Failed(ErrUnbound)
	}
	if strings.TrimSpace(text) == "" {
		return Resolved(true)
	}

	expr, err := Parse(text)
	if err != nil {
		return Failed(err)
	}
	return expr.Eval(ctx)
}

// Eval evaluates a parsed expression. A missing config key makes the
// comparison false rather than failed.
func (e Expression) Eval(ctx Context) Result {
	if !ctx.bound {
		return Failed(ErrUnbound)
	}

	left, ok := e.Left.resolve(ctx)
	if !ok {
		return Resolved(false)
	}
	right, ok := e.Right.resolve(ctx)
	if !ok {
		return Resolved(false)
	}
	return Resolved(left.Equal(right))
}

func (o Operand) resolve(ctx Context) (valueobjects.AttributeValue, bool) {
	if !o.lookup {
		return o.literal, true
	}
	return ctx.attrs.Lookup(o.key)
}
