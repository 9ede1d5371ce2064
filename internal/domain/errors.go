package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeToolNotFound     ErrorType = "tool_not_found"
	ErrorTypeToolExecution    ErrorType = "tool_execution_failed"
	ErrorTypeInvalidContainer ErrorType = "invalid_container"
	ErrorTypeNoImagesFound    ErrorType = "no_images_found"
	ErrorTypeConversion       ErrorType = "conversion_failed"
	ErrorTypeOCR              ErrorType = "ocr_failed"
	ErrorTypeMetadataWrite    ErrorType = "metadata_write_failed"
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeConfig           ErrorType = "config"
	ErrorTypeIO               ErrorType = "io"
)

// DomainError represents a domain-specific error with context.
// Error() yields the human readable message that ends up in a failed state.
type DomainError struct {
	Type    ErrorType
	Message string
	File    string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether err wraps a DomainError of the given type.
func IsType(err error, errType ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == errType
	}
	return false
}

// ToolNotFound is raised lazily, when a stage needs a tool that was not resolved.
func ToolNotFound(tool string) *DomainError {
	return NewError(ErrorTypeToolNotFound, fmt.Sprintf("%s not found", tool), nil)
}

func ToolExecutionFailed(tool, stderr string) *DomainError {
	return NewError(ErrorTypeToolExecution, fmt.Sprintf("%s failed: %s", tool, stderr), nil)
}

func InvalidContainer(detail string) *DomainError {
	return NewError(ErrorTypeInvalidContainer, fmt.Sprintf("Invalid DOCX file: %s", detail), nil)
}

func NoImagesFound() *DomainError {
	return NewError(ErrorTypeNoImagesFound, "No images found", nil)
}

func ConversionFailed(detail string, err error) *DomainError {
	return NewError(ErrorTypeConversion, fmt.Sprintf("Image conversion failed: %s", detail), err)
}

func OCRFailed(detail string, err error) *DomainError {
	return NewError(ErrorTypeOCR, fmt.Sprintf("OCR failed: %s", detail), err)
}

func MetadataWriteFailed(file, detail string) *DomainError {
	e := NewError(ErrorTypeMetadataWrite, fmt.Sprintf("Metadata write failed: %s: %s", file, detail), nil)
	e.File = file
	return e
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}
