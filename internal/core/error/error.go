package errx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

// Kind is the user-facing failure category of an AppError.
type Kind string

const (
	KindSystem           Kind = "system"
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindPermission       Kind = "permission"
	KindResourceNotFound Kind = "resource_not_found"
	KindGateway          Kind = "gateway"
	KindThrottle         Kind = "throttle"
	KindRedis            Kind = "redis"
)

const (
	// SystemErrorMessage prefixes failures outside the prediction pathways.
	SystemErrorMessage = "Error communicating with agent"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// PermissionErrorMessage is returned when the warehouse refuses access to a model or table.
	PermissionErrorMessage = "ERROR: Cannot access ML model. Check your BigQuery permissions and verify the model exists."
)

// AppError wraps an underlying error with a category, an HTTP-like status and
// a message that is safe to show to the end user.
type AppError struct {
	Kind    Kind
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the underlying error, or is an
// AppError of the same kind.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok && t.Kind != "" && t.Kind == e.Kind {
		return true
	}
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// UserMessage returns the text surfaced to the user for this error.
func (e *AppError) UserMessage() string {
	return e.Message
}

// System wraps a failure of the agent runtime itself, such as the chat model
// or the graph.
func System(err error) *AppError {
	return &AppError{
		Kind:    KindSystem,
		Err:     err,
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("%s: %s", SystemErrorMessage, detail(err)),
	}
}

// Validation reports a malformed VIN. vin is the normalized input.
func Validation(vin string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Invalid VIN format. VINs must be exactly 17 alphanumeric characters. You provided: %s", vin),
	}
}

// NotFound reports a syntactically valid VIN for which the warehouse returned no rows.
func NotFound(vin string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("No data found for VIN: %s. Please verify the VIN is correct and exists in our quality data system.", vin),
	}
}

// Permission reports an authorization failure from the warehouse.
func Permission(err error) *AppError {
	return &AppError{
		Kind:    KindPermission,
		Err:     err,
		Status:  http.StatusForbidden,
		Message: PermissionErrorMessage,
	}
}

// ResourceNotFound reports a missing model or feature table.
func ResourceNotFound(err error) *AppError {
	return &AppError{
		Kind:    KindResourceNotFound,
		Err:     err,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("ERROR: ML model or training data table not found. Please verify the model exists. Error: %s", detail(err)),
	}
}

// Gateway reports any other prediction failure, including malformed result rows.
func Gateway(err error) *AppError {
	return &AppError{
		Kind:    KindGateway,
		Err:     err,
		Status:  http.StatusBadGateway,
		Message: fmt.Sprintf("Prediction failed: %s", detail(err)),
	}
}

// Throttle reports a repeated tool call that must not be executed.
func Throttle(toolName, vin string, elapsed time.Duration) *AppError {
	return &AppError{
		Kind:   KindThrottle,
		Status: http.StatusTooManyRequests,
		Message: fmt.Sprintf("STOP: Just called %s for VIN %s %.1fs ago. Do not call again. Present the previous results.",
			toolName, vin, elapsed.Seconds()),
	}
}

// ClassifyGateway maps an error raised by the prediction warehouse into one
// of the user-facing categories. AppErrors pass through unchanged.
func ClassifyGateway(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusForbidden:
			return Permission(err)
		case http.StatusNotFound:
			return ResourceNotFound(err)
		}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "403") || strings.Contains(lower, "permission"):
		return Permission(err)
	case strings.Contains(msg, "404") || strings.Contains(lower, "not found"):
		return ResourceNotFound(err)
	default:
		return Gateway(err)
	}
}

// KindOf returns the category of err, or KindSystem when err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindSystem
}

// UserMessage returns the user-facing text for err. Errors that are not
// AppErrors did not come from a prediction pathway and are reported as
// system failures; warehouse errors are classified at the gateway.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.UserMessage()
	}
	return System(err).UserMessage()
}

func detail(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
