package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents knowledge graph errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeStorage represents document storage errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeTraining represents training data errors
	ErrorTypeTraining ErrorType = "training"
	// ErrorTypeAnalysis represents document analysis errors
	ErrorTypeAnalysis ErrorType = "analysis"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Graph Errors

// ErrUnknownCategory is returned when a category label is outside the taxonomy
type ErrUnknownCategory struct {
	*BaseError
	Label string
}

func NewUnknownCategory(label string) *ErrUnknownCategory {
	return &ErrUnknownCategory{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("unknown category: %s", label), nil),
		Label:     label,
	}
}

// ErrDanglingReference is returned when an edge references a missing node
type ErrDanglingReference struct {
	*BaseError
	Source string
	Target string
}

func NewDanglingReference(source, target string) *ErrDanglingReference {
	return &ErrDanglingReference{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("edge references missing node: %s -> %s", source, target), nil),
		Source:    source,
		Target:    target,
	}
}

// ErrPersistence is returned when the durable save of the graph fails
type ErrPersistence struct {
	*BaseError
	Path string
}

func NewPersistence(path string, err error) *ErrPersistence {
	return &ErrPersistence{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to persist graph: %s", path), err),
		Path:      path,
	}
}

// ErrStoreDegraded is returned for writes after a failed save, until the
// underlying storage is verified healthy again
var ErrStoreDegraded = NewBaseError(ErrorTypeGraph, "graph store degraded: persistence failed, writes refused", nil)

// ErrStoreClosed is returned for operations on a closed store
var ErrStoreClosed = NewBaseError(ErrorTypeGraph, "graph store is closed", nil)

// Storage Errors

// ErrDocumentNotFound is returned when a document id is not in the store
type ErrDocumentNotFound struct {
	*BaseError
	DocumentID string
}

func NewDocumentNotFound(documentID string) *ErrDocumentNotFound {
	return &ErrDocumentNotFound{
		BaseError:  NewBaseError(ErrorTypeStorage, fmt.Sprintf("document not found: %s", documentID), nil),
		DocumentID: documentID,
	}
}

// Training Errors

// ErrCategoryNotFound is returned when a training category label has no questions
type ErrCategoryNotFound struct {
	*BaseError
	Category string
}

func NewCategoryNotFound(category string) *ErrCategoryNotFound {
	return &ErrCategoryNotFound{
		BaseError: NewBaseError(ErrorTypeTraining, fmt.Sprintf("category not found: %s", category), nil),
		Category:  category,
	}
}

// Analysis Errors

// ErrAnalysisNotFound is returned when no analysis record exists for a document
type ErrAnalysisNotFound struct {
	*BaseError
	DocumentID string
}

func NewAnalysisNotFound(documentID string) *ErrAnalysisNotFound {
	return &ErrAnalysisNotFound{
		BaseError:  NewBaseError(ErrorTypeAnalysis, fmt.Sprintf("no analysis found for document: %s", documentID), nil),
		DocumentID: documentID,
	}
}

// ErrExtractionFailed is returned when LLM knowledge extraction fails
type ErrExtractionFailed struct {
	*BaseError
	Reason string
}

func NewExtractionFailed(reason string, err error) *ErrExtractionFailed {
	return &ErrExtractionFailed{
		BaseError: NewBaseError(ErrorTypeAnalysis, fmt.Sprintf("knowledge extraction failed: %s", reason), err),
		Reason:    reason,
	}
}

// ErrUnsupportedAnalysisType is returned for analysis types the runner does not know
type ErrUnsupportedAnalysisType struct {
	*BaseError
	AnalysisType string
}

func NewUnsupportedAnalysisType(analysisType string) *ErrUnsupportedAnalysisType {
	return &ErrUnsupportedAnalysisType{
		BaseError:    NewBaseError(ErrorTypeAnalysis, fmt.Sprintf("unsupported analysis type: %s", analysisType), nil),
		AnalysisType: analysisType,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if baseErr, ok := err.(*BaseError); ok {
		return baseErr.Type == errType
	}
	// Check wrapped errors
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		if inner := wrapped.Unwrap(); inner != nil {
			return IsErrorType(inner, errType)
		}
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Degraded-store writes are retryable once storage recovers
	if err == ErrStoreDegraded {
		return true
	}
	// Persistence failures are retryable; the mutation was not committed
	if _, ok := err.(*ErrPersistence); ok {
		return true
	}
	// Dangling references are programming errors, never retryable
	if _, ok := err.(*ErrDanglingReference); ok {
		return false
	}
	return false
}
