// Package registryhandler exposes the registry suite over HTTP and provides
// a Go client for it.
//
// Every mutating request acts as the account named in the X-Caller-Address
// header. Component errors map to status codes by category: authorization
// 403, not found 404, validation 400, state 409. The response body is an
// api.ErrorResponse whose kind lets Client restore the category, so
// errors.Is(err, interfaces.ErrValidation) works on both sides of the wire.
package registryhandler
