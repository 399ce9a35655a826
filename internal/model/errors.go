package model

import "fmt"

// MalformedDocumentError is returned when a payload is not well-formed XML or
// is missing the mandatory infNFe element. Fatal for the document, never for
// the batch.
type MalformedDocumentError struct {
	File    string
	Message string
	Cause   error
}

func (e *MalformedDocumentError) Error() string {
	prefix := "malformed document"
	if e.File != "" {
		prefix = fmt.Sprintf("malformed document %s", e.File)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Cause
}

// NewMalformedDocumentError creates a new malformed document error
func NewMalformedDocumentError(file, message string, cause error) *MalformedDocumentError {
	return &MalformedDocumentError{
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// TableError represents a reference table that could not be loaded or that
// fails its required-column contract.
type TableError struct {
	Table   string
	Message string
	Cause   error
}

func (e *TableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("reference table %s: %s (%v)", e.Table, e.Message, e.Cause)
	}
	return fmt.Sprintf("reference table %s: %s", e.Table, e.Message)
}

func (e *TableError) Unwrap() error {
	return e.Cause
}

// NewTableError creates a new table error
func NewTableError(table, message string, cause error) *TableError {
	return &TableError{
		Table:   table,
		Message: message,
		Cause:   cause,
	}
}
