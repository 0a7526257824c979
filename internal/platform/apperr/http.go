package apperr

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an error's kind to an HTTP status code.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindReferentialIntegrity, KindInvalidState:
		return http.StatusConflict
	case KindAuthentication, KindSession:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
