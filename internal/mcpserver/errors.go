package mcpserver

import (
	"errors"

	merrors "github.com/midos-mcp/midos-mcp/internal/errors"
)

// Standard JSON-RPC 2.0 error codes, plus a reserved band for
// protocol-specific errors, mirroring the teacher's internal/mcp/errors.go.
const (
	rpcErrParse          = -32700
	rpcErrInvalidRequest = -32600
	rpcErrMethodNotFound = -32601
	rpcErrInvalidParams  = -32602
	rpcErrInternal       = -32603

	rpcErrAuthInvalid   = -32001
	rpcErrTierForbidden = -32002
	rpcErrQuotaExceeded = -32003
	rpcErrNotFound      = -32004
)

// mapError converts an error into a JSON-RPC error object, mapping the
// structured MidosError codes this server raises (auth, quota, validation)
// onto a stable reserved band and falling back to an internal error for
// anything unrecognized.
func mapError(err error) *rpcError {
	if err == nil {
		return nil
	}

	if errors.Is(err, errNotFound) {
		return &rpcError{Code: rpcErrNotFound, Message: err.Error()}
	}

	var merr *merrors.MidosError
	if errors.As(err, &merr) {
		return mapMidosError(merr)
	}

	return &rpcError{Code: rpcErrInternal, Message: err.Error()}
}

func mapMidosError(e *merrors.MidosError) *rpcError {
	message := e.Message
	if e.Suggestion != "" {
		message = e.Message + " " + e.Suggestion
	}

	switch e.Code {
	case merrors.ErrCodeAuthInvalid, merrors.ErrCodeAuthRevoked:
		return &rpcError{Code: rpcErrAuthInvalid, Message: message}
	case merrors.ErrCodeTierForbidden:
		return &rpcError{Code: rpcErrTierForbidden, Message: message}
	case merrors.ErrCodeQuotaExceeded:
		return &rpcError{Code: rpcErrQuotaExceeded, Message: message}
	}

	switch e.Category {
	case merrors.CategoryValidation:
		return &rpcError{Code: rpcErrInvalidParams, Message: message}
	case merrors.CategoryAuth:
		return &rpcError{Code: rpcErrAuthInvalid, Message: message}
	default:
		return &rpcError{Code: rpcErrInternal, Message: message}
	}
}

// errNotFound is returned by document-lookup handlers (get_protocol,
// get_eureka, get_truth, resource reads) when the named item doesn't exist.
var errNotFound = errors.New("not found")
