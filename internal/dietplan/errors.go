package dietplan

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationBackend matches any failure to obtain a response from the backend.
	ErrGenerationBackend = errors.New("generation backend error")
	// ErrGenerationContractViolation matches responses that do not follow the output contract.
	ErrGenerationContractViolation = errors.New("generation contract violation")
	// ErrNoAlternativesFound is reported when a valid response holds no alternatives.
	// Callers should treat it as zero results rather than a failure.
	ErrNoAlternativesFound = errors.New("no alternatives found")
)

// BackendError wraps the cause of a failed backend call.
type BackendError struct {
	Task string
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrGenerationBackend, e.Task, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrGenerationBackend }

// ContractViolationError describes how a backend response broke the output
// contract. Raw keeps the response text for diagnosis.
type ContractViolationError struct {
	Task   string
	Reason string
	Raw    string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrGenerationContractViolation, e.Task, e.Reason)
}

func (e *ContractViolationError) Is(target error) bool {
	return target == ErrGenerationContractViolation
}
