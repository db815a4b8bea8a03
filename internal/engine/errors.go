package engine

import "fmt"

// InferenceError reports an executor-level failure during a forward pass:
// malformed tensors, device failure, missing outputs. It is surfaced per
// request and never retried; other requests and styles are unaffected.
type InferenceError struct {
	Graph string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed on %s graph: %v", e.Graph, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
