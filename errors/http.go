package errors

import (
	stderrors "errors"
	"net/http"
)

// ToHTTPStatus maps an error returned by a service to the status answered on the REST routes.
func ToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrInvalidCursor), stderrors.Is(err, ErrEmptySearchTerm):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
