// Package api holds the HTTP server configuration and the JSON request and
// response types of the registry API. Handlers and the Go client live in
// api/registryhandler.
package api
