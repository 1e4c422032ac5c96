package model

import (
	"fmt"
	"strings"
)

// ParseError represents a response that could not be interpreted
type ParseError struct {
	Service Service
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Service, e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Service, e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(service Service, field, message string, cause error) *ParseError {
	return &ParseError{
		Service: service,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError represents invalid input rejected before calling a service
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// ServiceError carries the error list a web service returned for an operation
type ServiceError struct {
	Service   Service
	Operation string
	Messages  []Message
}

func (e *ServiceError) Error() string {
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		parts = append(parts, m.String())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Service, e.Operation, strings.Join(parts, "; "))
}

// Codes returns the error codes in response order
func (e *ServiceError) Codes() []string {
	codes := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		codes = append(codes, m.Code)
	}
	return codes
}

// HasCode reports whether the service returned the given error code
func (e *ServiceError) HasCode(code string) bool {
	for _, m := range e.Messages {
		if m.Code == code {
			return true
		}
	}
	return false
}

// NewServiceError returns nil when messages is empty
func NewServiceError(service Service, operation string, messages []Message) *ServiceError {
	if len(messages) == 0 {
		return nil
	}
	return &ServiceError{
		Service:   service,
		Operation: operation,
		Messages:  messages,
	}
}
