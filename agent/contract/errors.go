package contract

import "errors"

var (
	// ErrUpstream marks a transient completion-service failure. Calls
	// wrapping this error are retried with backoff before escalating.
	ErrUpstream = errors.New("completion upstream unavailable")

	// ErrLoopOverrun means the tool loop hit its round bound without a
	// terminal result. Treated as an internal defect, never shown raw.
	ErrLoopOverrun = errors.New("tool loop exceeded round limit")

	// ErrUnmappedTransition means a called-tool combination is not covered
	// by the category definition. Configuration defect; escalate.
	ErrUnmappedTransition = errors.New("no transition for called tools")

	ErrUnknownTool  = errors.New("tool is not registered")
	ErrUnknownState = errors.New("state is not defined for category")
	ErrValidation   = errors.New("validation failed")
)
