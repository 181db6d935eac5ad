package xand

import "github.com/pkg/errors"

// The package classifies every failure under one of these sentinel kinds.
// Errors returned anywhere in the package wrap exactly one of them, so callers
// can test with errors.Is. All of them abort the current operation; there is
// no retry or degraded-mode path.
var (
	// ErrConfig reports an invalid graph description: an unknown operation
	// name or a missing/malformed operation argument.
	ErrConfig = errors.New("graph config error")

	// ErrConstruction reports a failure while resolving a description into a
	// graph: an unresolved input reference or an input node without a value.
	ErrConstruction = errors.New("graph construction error")

	// ErrShape reports a shape-inference failure: arity mismatch, rank
	// mismatch, out-of-bounds axis or incompatible dimensions.
	ErrShape = errors.New("shape error")

	// ErrEvaluation reports a failure while running the graph forward: an
	// unknown input name, a non-data node fed a value, or a kernel failure.
	ErrEvaluation = errors.New("evaluation error")

	// ErrCallArity reports a compiled module called with the wrong number of
	// input tensors.
	ErrCallArity = errors.New("call arity error")
)
