package domain

import (
	"errors"
	"fmt"
)

// Backend failure taxonomy. Every error escaping a provider adapter wraps
// exactly one of these three sentinels; the routing layer observes nothing
// finer-grained.
var (
	ErrQuotaExhausted = fmt.Errorf("provider quota exhausted")
	ErrProviderDown   = fmt.Errorf("provider unavailable")
	ErrProvider       = fmt.Errorf("provider error")
)

// Sentinel errors for the domain layer.
var (
	ErrProviderNotFound  = fmt.Errorf("llm provider not found")
	ErrToolNotFound      = fmt.Errorf("tool not found")
	ErrAgentNotFound     = fmt.Errorf("agent not found")
	ErrMaxTurns          = fmt.Errorf("agent reached max turns")
	ErrPreferredProvider = fmt.Errorf("preferred provider unavailable")
	ErrAllProvidersDown  = fmt.Errorf("all providers down or exhausted")
	ErrCredentialMissing = fmt.Errorf("provider credential missing")
	ErrConfigLoad        = fmt.Errorf("failed to load configuration")
	ErrDuplicate         = fmt.Errorf("duplicate")
	ErrInvalidInput      = fmt.Errorf("invalid input")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Get")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// FailureKind is the machine-parseable category of a routing failure,
// surfaced to the caller at the request boundary.
type FailureKind string

const (
	FailureProviderDown    FailureKind = "provider_down"
	FailureNeedsCredential FailureKind = "needs_credential"
	FailureAllDown         FailureKind = "all_down"
	FailureServerError     FailureKind = "server_error"
)

// RouteError is a structured routing failure. Provider is set for
// provider_down and needs_credential kinds to identify the implicated backend.
type RouteError struct {
	Kind     FailureKind
	Provider string
	Err      error
}

func (e *RouteError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *RouteError) Unwrap() error { return e.Err }

// RouteErrorOf extracts a *RouteError from err's chain, or nil.
func RouteErrorOf(err error) *RouteError {
	var re *RouteError
	if errors.As(err, &re) {
		return re
	}
	return nil
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeQuotaExhausted    ErrorCode = "QUOTA_EXHAUSTED"
	CodeProviderDown      ErrorCode = "PROVIDER_DOWN"
	CodeProviderError     ErrorCode = "PROVIDER_ERROR"
	CodeProviderNotFound  ErrorCode = "PROVIDER_NOT_FOUND"
	CodeToolNotFound      ErrorCode = "TOOL_NOT_FOUND"
	CodeAgentNotFound     ErrorCode = "AGENT_NOT_FOUND"
	CodeMaxTurns          ErrorCode = "MAX_TURNS"
	CodePreferredProvider ErrorCode = "PREFERRED_PROVIDER_UNAVAILABLE"
	CodeAllProvidersDown  ErrorCode = "ALL_PROVIDERS_DOWN"
	CodeCredentialMissing ErrorCode = "CREDENTIAL_MISSING"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeDuplicate         ErrorCode = "DUPLICATE"
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrQuotaExhausted:    CodeQuotaExhausted,
	ErrProviderDown:      CodeProviderDown,
	ErrProvider:          CodeProviderError,
	ErrProviderNotFound:  CodeProviderNotFound,
	ErrToolNotFound:      CodeToolNotFound,
	ErrAgentNotFound:     CodeAgentNotFound,
	ErrMaxTurns:          CodeMaxTurns,
	ErrPreferredProvider: CodePreferredProvider,
	ErrAllProvidersDown:  CodeAllProvidersDown,
	ErrCredentialMissing: CodeCredentialMissing,
	ErrConfigLoad:        CodeConfigLoad,
	ErrDuplicate:         CodeDuplicate,
	ErrInvalidInput:      CodeInvalidInput,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It walks the error chain with errors.Is and returns CodeUnknown if no
// matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	if code, ok := errorCodeMap[err]; ok {
		return code
	}
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}
