package errors

import "net/http"

// ErrorCode identifies a failure category.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal         ErrorCode = "COMMON_001"
	ErrCodeBadRequest       ErrorCode = "COMMON_002"
	ErrCodeNotFound         ErrorCode = "COMMON_003"
	ErrCodeTimeout          ErrorCode = "COMMON_004"
	ErrCodeValidation       ErrorCode = "COMMON_005"
	ErrCodeSerialization    ErrorCode = "COMMON_006"
	ErrCodeExternalService  ErrorCode = "COMMON_007"
	ErrCodeNotImplemented   ErrorCode = "COMMON_008"
	ErrCodeConfiguration    ErrorCode = "COMMON_009"
)

// Store error codes.
const (
	// ErrCodeStoreUnavailable covers transport failures and timeouts while
	// talking to a backing store. A batch either succeeds or fails with this.
	ErrCodeStoreUnavailable ErrorCode = "STORE_001"

	// ErrCodeMalformedValue is returned when a stored value fails to parse.
	// Callers treat the affected key as absent.
	ErrCodeMalformedValue ErrorCode = "STORE_002"

	ErrCodeStoreClosed ErrorCode = "STORE_003"
)

// Normalization error codes.
const (
	ErrCodeUnknownConflation ErrorCode = "NORM_001"
	ErrCodeEmptyCurieList    ErrorCode = "NORM_002"
)

// Ingestion error codes.
const (
	ErrCodeSchemaValidation ErrorCode = "INGEST_001"
	ErrCodeCompendiumRead   ErrorCode = "INGEST_002"
)

// HTTPStatus maps an ErrorCode to the HTTP status the API surfaces it with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeValidation, ErrCodeEmptyCurieList, ErrCodeUnknownConflation:
		return http.StatusUnprocessableEntity
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeStoreUnavailable, ErrCodeExternalService:
		return http.StatusInternalServerError
	case ErrCodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
