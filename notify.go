package main

import (
	"net/http"

	"github.com/pkg/errors"
)

// dispatch delivers event to the connection that registered code. The
// payload is forwarded as the event data, unfiltered.
func (h *hub) dispatch(code, event string, data payload) error {
	if code == "" || event == "" {
		mark("notify.badrequest", 1)
		return errMissingParams
	}
	text, err := encodeFrame(normalizeEvent(event), data)
	if err != nil {
		return err
	}
	return h.call(command{cmd: NOTIFY, code: code, text: text}).err
}

func dispatchStatus(err error) int {
	switch errors.Cause(err) {
	case nil:
		return http.StatusOK
	case errMissingParams:
		return http.StatusBadRequest
	case errCodeNotFound:
		return http.StatusNotFound
	case errHubClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
