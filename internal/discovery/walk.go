package discovery

import (
	"context"
	"errors"
	"fmt"

	"ctr/internal/domain"
)

// SkipAll is returned by a WalkFunc to stop the walk at once. Walk itself
// then returns nil.
var SkipAll = errors.New("skip everything and stop the walk")

// ErrNoRoot is returned when there is no namespace to walk
var ErrNoRoot = errors.New("no root namespace")

// WalkFunc is called for each definition with its qualified name
type WalkFunc func(qualified string, def domain.Definition) error

// Walk visits root depth-first: child namespaces before the definitions
// declared directly in a namespace.
func Walk(ctx context.Context, root Namespace, fn WalkFunc) error {
	if root == nil {
		return ErrNoRoot
	}
	err := walk(ctx, root, "", fn)
	if errors.Is(err, SkipAll) {
		return nil
	}
	return err
}

func walk(ctx context.Context, ns Namespace, qualified string, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	children, err := ns.Children()
	if err != nil {
		return wrapError(qualified, err)
	}
	for _, child := range children {
		if err := walk(ctx, child, Join(qualified, child.Name()), fn); err != nil {
			return err
		}
	}

	defs, err := ns.Definitions()
	if err != nil {
		return wrapError(qualified, err)
	}
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(Join(qualified, def.Name), def); err != nil {
			return err
		}
	}
	return nil
}

func wrapError(qualified string, err error) error {
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Namespace: qualified, Err: fmt.Errorf("inspect namespace: %w", err)}
}
