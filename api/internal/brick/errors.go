package brick

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorCode identifies a failure class of a pipeline invocation.
type ErrorCode string

const (
	ErrCodeInvalidImage       ErrorCode = "INVALID_IMAGE"
	ErrCodeDescriptionService ErrorCode = "DESCRIPTION_SERVICE_FAILED"
	ErrCodeInstructionService ErrorCode = "INSTRUCTION_SERVICE_FAILED"
	ErrCodeRenderService      ErrorCode = "RENDER_SERVICE_FAILED"
	ErrCodeConfiguration      ErrorCode = "CONFIGURATION_INVALID"
)

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageConfigure    Stage = "configure"
	StageEncode       Stage = "encode"
	StageDescribe     Stage = "describe"
	StagePrompt       Stage = "prompt"
	StageInstructions Stage = "instructions"
	StageRender       Stage = "render"
)

// StandardError is the typed error every pipeline failure is reported as.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Err       error     `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.Err }

// Is matches any StandardError carrying the same code, so the sentinels below
// work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidImage       = &StandardError{Code: ErrCodeInvalidImage}
	ErrDescriptionService = &StandardError{Code: ErrCodeDescriptionService}
	ErrInstructionService = &StandardError{Code: ErrCodeInstructionService}
	ErrRenderService      = &StandardError{Code: ErrCodeRenderService}
	ErrConfiguration      = &StandardError{Code: ErrCodeConfiguration}
)

func NewInvalidImageError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidImage,
		Stage:     StageEncode,
		Message:   "Photo could not be decoded as an image",
		Details:   errDetails(err),
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

func NewDescriptionServiceError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDescriptionService,
		Stage:     StageDescribe,
		Message:   "Truck description request failed",
		Details:   errDetails(err),
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

func NewInstructionServiceError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInstructionService,
		Stage:     StageInstructions,
		Message:   "Build instruction request failed",
		Details:   errDetails(err),
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

func NewRenderServiceError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRenderService,
		Stage:     StageRender,
		Message:   "Render request failed",
		Details:   errDetails(err),
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Stage:     StageConfigure,
		Message:   "Invalid configuration",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewPromptError reports a template failure. It counts as a configuration problem:
// the template or its inputs are wrong, no service was involved.
func NewPromptError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Stage:     StagePrompt,
		Message:   "Build prompt could not be rendered",
		Details:   errDetails(err),
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// CodeOf returns the code of the first StandardError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// StageOf returns the stage of the first StandardError in err's chain, or "".
func StageOf(err error) Stage {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// UserMessage is the text a front end shows for a failed invocation.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The generation service took too long to answer. Please try again."
	}
	if errors.Is(err, context.Canceled) {
		return "The request was cancelled."
	}
	var se *StandardError
	if !errors.As(err, &se) {
		return "Something went wrong: " + err.Error()
	}
	switch se.Code {
	case ErrCodeInvalidImage:
		return "That photo could not be read. Please send a JPEG or PNG picture of the truck."
	case ErrCodeConfiguration:
		return "Settings problem: " + se.Details
	case ErrCodeDescriptionService:
		return "Could not analyse the truck photo: " + se.Details
	case ErrCodeInstructionService:
		return "Could not generate the build instructions: " + se.Details
	case ErrCodeRenderService:
		return "No render available: " + se.Details
	}
	return se.Error()
}
