package model

import "fmt"

// ParseError represents a document that could not be read as the expected dialect
type ParseError struct {
	Dialect Dialect
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Dialect, e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Dialect, e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(dialect Dialect, field, message string, cause error) *ParseError {
	return &ParseError{
		Dialect: dialect,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// NamespaceResolutionError is returned when a qualified tag uses a prefix
// that is not declared in the scope of the element being addressed.
type NamespaceResolutionError struct {
	Prefix  string
	Tag     string
	Element string
}

func (e *NamespaceResolutionError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("namespace prefix %q not found in scope of <%s> (tag %s)", e.Prefix, e.Element, e.Tag)
	}
	return fmt.Sprintf("namespace prefix %q not found (tag %s)", e.Prefix, e.Tag)
}

// NewNamespaceResolutionError creates a new namespace resolution error
func NewNamespaceResolutionError(prefix, tag, element string) *NamespaceResolutionError {
	return &NamespaceResolutionError{
		Prefix:  prefix,
		Tag:     tag,
		Element: element,
	}
}

// FeedUnavailableError represents a product feed that could not be fetched or read
type FeedUnavailableError struct {
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *FeedUnavailableError) Error() string {
	msg := fmt.Sprintf("product feed unavailable: %s", e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	return msg
}

func (e *FeedUnavailableError) Unwrap() error {
	return e.Cause
}

// NewFeedUnavailableError creates a new feed error
func NewFeedUnavailableError(url string, statusCode int, message string, cause error) *FeedUnavailableError {
	return &FeedUnavailableError{
		URL:        url,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// ReceiptParseError represents a receipt document missing an expected node
type ReceiptParseError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ReceiptParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("receipt parse failed at %s: %s (%v)", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("receipt parse failed at %s: %s", e.Path, e.Message)
}

func (e *ReceiptParseError) Unwrap() error {
	return e.Cause
}

// NewReceiptParseError creates a new receipt parse error
func NewReceiptParseError(path, message string, cause error) *ReceiptParseError {
	return &ReceiptParseError{
		Path:    path,
		Message: message,
		Cause:   cause,
	}
}

// PriceError is a per-item failure of the price normalizer. It never aborts
// a transform; the item is left as it was.
type PriceError struct {
	Item    int
	Block   CurrencyBlock
	Field   string
	Value   string
	Message string
	Cause   error
}

func (e *PriceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invoice item %d %s/%s: %s (value=%q, %v)", e.Item, e.Block, e.Field, e.Message, e.Value, e.Cause)
	}
	return fmt.Sprintf("invoice item %d %s/%s: %s", e.Item, e.Block, e.Field, e.Message)
}

func (e *PriceError) Unwrap() error {
	return e.Cause
}

// NewPriceError creates a new price error
func NewPriceError(item int, block CurrencyBlock, field, value, message string, cause error) *PriceError {
	return &PriceError{
		Item:    item,
		Block:   block,
		Field:   field,
		Value:   value,
		Message: message,
		Cause:   cause,
	}
}

// TransformError wraps a fatal failure with the step and element it happened at
type TransformError struct {
	Step    string
	Element string
	Cause   error
}

func (e *TransformError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("transform failed [%s] at %s: %v", e.Step, e.Element, e.Cause)
	}
	return fmt.Sprintf("transform failed [%s]: %v", e.Step, e.Cause)
}

func (e *TransformError) Unwrap() error {
	return e.Cause
}

// NewTransformError creates a new transform error
func NewTransformError(step, element string, cause error) *TransformError {
	return &TransformError{
		Step:    step,
		Element: element,
		Cause:   cause,
	}
}

// ValidationError represents invalid configuration values
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
