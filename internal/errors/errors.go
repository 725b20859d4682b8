package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

const (
	CodeValidation   = "MED_001"
	CodeNotFound     = "MED_002"
	CodePrecondition = "MED_003"
	CodePersistence  = "STORE_001"
	CodeConfig       = "CONFIG_001"
)

var (
	ErrConfigNotFound = &AppError{Code: CodeConfig, Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrMedicationNotFound = &AppError{Code: CodeNotFound, Message: "medication not found"}
	ErrSupplyDisabled     = &AppError{Code: CodePrecondition, Message: "supply tracking not enabled"}

	ErrStorageUnavailable = &AppError{Code: CodePersistence, Message: "storage unavailable"}
)

func Validation(message string, cause ...error) *AppError {
	return New(CodeValidation, message, cause...)
}

func Persistence(message string, cause error) *AppError {
	return New(CodePersistence, message, cause)
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func IsValidation(err error) bool {
	return GetCode(err) == CodeValidation
}

func IsPrecondition(err error) bool {
	return GetCode(err) == CodePrecondition
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
