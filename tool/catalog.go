package tool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 20 * time.Second

// CatalogOptions configure a Catalog.
type CatalogOptions struct {
	// Timeout applied to every tool call; <= 0 disables the per-call deadline.
	Timeout time.Duration
	Logger  logging.Logger
}

// Catalog is a read-only registry of tools keyed by name. It is safe for
// concurrent use once constructed.
type Catalog struct {
	tools  map[string]Tool
	order  []string
	opts   CatalogOptions
	logger logging.Logger
}

// NewCatalog registers tools in the given order. Empty or duplicate names are rejected.
func NewCatalog(tools []Tool, optFns ...func(o *CatalogOptions)) (*Catalog, error) {
	opts := CatalogOptions{Timeout: DefaultTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := &Catalog{
		tools:  make(map[string]Tool, len(tools)),
		opts:   opts,
		logger: logging.OrNoOp(opts.Logger),
	}
	for _, t := range tools {
		if t == nil || t.Name() == "" {
			return nil, errors.New("tool name must not be empty")
		}
		if _, dup := c.tools[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name())
		}
		c.tools[t.Name()] = t
		c.order = append(c.order, t.Name())
	}
	return c, nil
}

// Lookup returns the tool registered under name.
func (c *Catalog) Lookup(name string) (Tool, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of registered tools.
func (c *Catalog) Len() int { return len(c.order) }

// Schemas returns the tool definitions advertised to the model, in
// registration order.
func (c *Catalog) Schemas() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(c.order))
	for _, name := range c.order {
		t := c.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: core.ToolCallTypeFunction,
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Dispatch decodes argsText and invokes the named tool.
//
// The returned Value is always the content to record for the call: the tool
// payload on success, otherwise an object with an "error" key. Tool internal
// failures (errors, panics, timeouts) are folded into that payload and never
// returned as error. The error return is non-nil only for an unregistered
// name (*UnknownToolError) or argument text that is not a JSON object
// (*ArgumentParseError); callers may record the payload and continue.
func (c *Catalog) Dispatch(ctx context.Context, name, argsText string) (core.Value, error) {
	t, ok := c.tools[name]
	if !ok {
		err := &UnknownToolError{Name: name}
		c.logger.Warn("tool.unknown", "tool", name)
		return core.ErrorValue(err.Error()), err
	}

	args, err := core.ParseObject(argsText)
	if err != nil {
		perr := &ArgumentParseError{Tool: name, Err: err}
		c.logger.Warn("tool.arguments.invalid", "tool", name, "error", err.Error())
		return core.ErrorValue(perr.Error()), perr
	}

	start := time.Now()
	c.logger.Debug("tool.call.start", "tool", name)

	result, callErr := c.invoke(ctx, t, args)
	logging.LogToolCall(c.logger, name, time.Since(start), callErr == nil, callErr)

	if callErr != nil {
		return core.ErrorValue("Tool execution failed: " + failureMessage(callErr)), nil
	}
	return result, nil
}

// invoke runs the tool with the per-call deadline and converts panics into
// *ToolError values.
func (c *Catalog) invoke(ctx context.Context, t Tool, args core.Object) (core.Value, error) {
	callCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	type outcome struct {
		value core.Value
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("tool.call.panic", "tool", t.Name(), "recover", r, "stack", string(debug.Stack()))
				out = outcome{err: &ToolError{Tool: t.Name(), Message: fmt.Sprintf("panic: %v", r), Code: CodePanic}}
			}
			done <- out
		}()
		v, err := t.Call(callCtx, args)
		out = outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return core.Value{}, timeoutError(t.Name(), c.opts.Timeout)
		}
		return out.value, out.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return core.Value{}, ctx.Err()
		}
		return core.Value{}, timeoutError(t.Name(), c.opts.Timeout)
	}
}

func timeoutError(tool string, d time.Duration) *ToolError {
	return &ToolError{Tool: tool, Message: fmt.Sprintf("timed out after %s", d), Code: CodeTimeout}
}

// failureMessage prefers the bare message of a ToolError over its formatted form.
func failureMessage(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Message
	}
	return err.Error()
}
