package registryhandler

import (
	"errors"
	"net/http"

	"github.com/ruteri/university-ledger/interfaces"
)

var errorKinds = []struct {
	kind   error
	name   string
	status int
}{
	{interfaces.ErrAuthorization, "authorization", http.StatusForbidden},
	{interfaces.ErrNotFound, "not_found", http.StatusNotFound},
	{interfaces.ErrValidation, "validation", http.StatusBadRequest},
	{interfaces.ErrState, "state", http.StatusConflict},
}

// errBadRequest marks malformed input rejected before reaching a component.
var errBadRequest = errors.New("bad request")

// statusFor returns the HTTP status and kind name for err.
func statusFor(err error) (int, string) {
	kind := interfaces.ErrorKind(err)
	for _, k := range errorKinds {
		if k.kind == kind {
			return k.status, k.name
		}
	}
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, ""
	case errors.Is(err, interfaces.ErrContentNotFound):
		return http.StatusNotFound, ""
	case errors.Is(err, interfaces.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, ""
	default:
		return http.StatusInternalServerError, ""
	}
}

// kindError restores a categorized error from its wire name.
func kindError(name, msg string) error {
	for _, k := range errorKinds {
		if k.name == name {
			return &interfaces.LedgerError{Kind: k.kind, Msg: msg}
		}
	}
	return nil
}
