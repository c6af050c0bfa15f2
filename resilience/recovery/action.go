package recovery

import (
	"errors"
	"time"
)

// Context carries the operational context of a failure through recovery.
type Context struct {
	Operation string
	Service   string
	Timestamp time.Time
}

// Action is a registered recovery strategy. Higher priority actions are
// evaluated first; the first eligible action handles the failure.
type Action interface {
	// Name identifies the action in logs and metrics.
	Name() string

	// Priority orders evaluation; higher runs first.
	Priority() int

	// ShouldExecute reports whether this action can handle the failure.
	ShouldExecute(err error, rctx Context) bool

	// Execute attempts to resolve the failure and produce a substitute result.
	Execute(err error, rctx Context) (any, error)
}

var (
	// ErrNilAction is returned when registering a nil action.
	ErrNilAction = errors.New("recovery: action must not be nil")
	// ErrEmptyActionName is returned when an action has no name.
	ErrEmptyActionName = errors.New("recovery: action name must not be empty")
	// ErrNilActionFunc is returned when an action is built without its functions.
	ErrNilActionFunc = errors.New("recovery: action functions must not be nil")
)

// funcAction adapts plain functions to the Action interface.
type funcAction struct {
	name          string
	priority      int
	shouldExecute func(err error, rctx Context) bool
	execute       func(err error, rctx Context) (any, error)
}

// NewAction builds an Action from plain functions, the common case for
// collaborators that don't want a dedicated type.
func NewAction(
	name string,
	priority int,
	shouldExecute func(err error, rctx Context) bool,
	execute func(err error, rctx Context) (any, error),
) (Action, error) {
	if name == "" {
		return nil, ErrEmptyActionName
	}

	if shouldExecute == nil || execute == nil {
		return nil, ErrNilActionFunc
	}

	return &funcAction{
		name:          name,
		priority:      priority,
		shouldExecute: shouldExecute,
		execute:       execute,
	}, nil
}

func (a *funcAction) Name() string { return a.name }

func (a *funcAction) Priority() int { return a.priority }

func (a *funcAction) ShouldExecute(err error, rctx Context) bool {
	return a.shouldExecute(err, rctx)
}

func (a *funcAction) Execute(err error, rctx Context) (any, error) {
	return a.execute(err, rctx)
}
