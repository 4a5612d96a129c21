package billingsync

import (
	"errors"
	"net/http"
)

// ErrBadRequest marks deliveries rejected before any downstream call is made
var ErrBadRequest = errors.New("bad request")

// StatusCode classifies a dispatch error as an HTTP status for logging
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
