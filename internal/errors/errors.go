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

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrNotOnboarded     = &AppError{Code: "STORE_001", Message: "onboarding not completed"}
	ErrStoreUnavailable = &AppError{Code: "STORE_002", Message: "store unavailable"}
	ErrDocumentCorrupt  = &AppError{Code: "STORE_003", Message: "stored document corrupt"}

	ErrMedicineNotFound = &AppError{Code: "MED_001", Message: "medicine not found"}
	ErrMedicineInvalid  = &AppError{Code: "MED_002", Message: "invalid medicine"}
	ErrTimeInvalid      = &AppError{Code: "MED_003", Message: "invalid time, expected HH:MM"}

	ErrSettingsInvalid = &AppError{Code: "SET_001", Message: "invalid settings"}
	ErrDateInvalid     = &AppError{Code: "SET_002", Message: "invalid date, expected YYYY-MM-DD"}

	ErrDoseNotFound     = &AppError{Code: "DOSE_001", Message: "dose not found"}
	ErrScheduleFailed   = &AppError{Code: "DOSE_002", Message: "scheduling failed"}
	ErrNotificationSend = &AppError{Code: "NOTIFY_001", Message: "notification delivery failed"}
	ErrNotifyRateLimit  = &AppError{Code: "NOTIFY_002", Message: "notification rate limit exceeded"}

	ErrChannelNotConfigured = &AppError{Code: "CHAN_001", Message: "channel not configured"}
	ErrChannelUnavailable   = &AppError{Code: "CHAN_002", Message: "channel unavailable"}

	ErrUnauthorized = &AppError{Code: "AUTH_001", Message: "unauthorized"}
	ErrForbidden    = &AppError{Code: "AUTH_002", Message: "forbidden"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

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

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
