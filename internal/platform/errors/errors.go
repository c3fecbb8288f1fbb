package errors

import (
	stderrors "errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
)

// Domain is the error domain attached to gRPC error details.
const Domain = "github.com/louisbranch/viewscore"

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Operator-facing message
	Metadata map[string]string // Additional context (paths, indices)
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface. The cause is appended so diagnostics
// printed to the operator carry the underlying failure.
func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Cause.Error()
	}
	return e.Message + ": " + e.Cause.Error()
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithMetadata creates a domain error with both metadata and a cause.
func WrapWithMetadata(code Code, message string, metadata map[string]string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
		Cause:    cause,
	}
}

// CodeOf returns the code of the first domain error in err's chain, or
// CodeUnknown.
func CodeOf(err error) Code {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeUnknown
}

// HasCode reports whether err's chain carries a domain error with code.
func HasCode(err error, code Code) bool {
	return stderrors.Is(err, &Error{Code: code})
}

// ToGRPCStatus converts the error to a gRPC status carrying an ErrorInfo
// detail so clients can recover the domain code.
func (e *Error) ToGRPCStatus() error {
	grpcCode := e.Code.GRPCCode()
	st := status.New(grpcCode, e.Error())

	st, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   string(e.Code),
		Domain:   Domain,
		Metadata: e.Metadata,
	})
	if err != nil {
		return status.New(grpcCode, e.Error()).Err()
	}
	return st.Err()
}

// FromGRPCStatus rebuilds a domain error from a gRPC status error. Statuses
// without viewscore error details map to fallback.
func FromGRPCStatus(err error, fallback Code) *Error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return Wrap(fallback, "", err)
	}
	for _, detail := range st.Details() {
		info, ok := detail.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != Domain {
			continue
		}
		return &Error{
			Code:     Code(info.GetReason()),
			Message:  st.Message(),
			Metadata: info.GetMetadata(),
		}
	}
	return &Error{Code: fallback, Message: st.Message()}
}
