// Package errors provides structured, code-carrying errors shared by the
// viewscore pipeline and the renderer host.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
	CodeViewpointsUnreadable Code = "VIEWPOINTS_UNREADABLE"
	CodeViewpointsMalformed  Code = "VIEWPOINTS_MALFORMED"

	// Output errors
	CodeResultsWriteFailed Code = "RESULTS_WRITE_FAILED"

	// Renderer errors
	CodeScoreFailed       Code = "SCORE_FAILED"
	CodeEngineUnsupported Code = "ENGINE_UNSUPPORTED"
	CodeEngineFailed      Code = "ENGINE_FAILED"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeRunAlreadyExists Code = "RUN_ALREADY_EXISTS"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeInvalidArgument,
		CodeViewpointsMalformed:
		return codes.InvalidArgument

	case CodeViewpointsUnreadable,
		CodeNotFound:
		return codes.NotFound

	case CodeRunAlreadyExists:
		return codes.AlreadyExists

	case CodeEngineUnsupported:
		return codes.Unimplemented

	case CodeScoreFailed,
		CodeEngineFailed,
		CodeResultsWriteFailed:
		return codes.Internal

	default:
		return codes.Unknown
	}
}
