// Package main (cmd/operator) is the operator tool for a running registry
// server. It talks to the HTTP API through registryhandler.Client and acts as
// the account given by --caller.
//
// Subcommands:
//
//   - deployment: print the authority, its owner and the bound components
//   - seed --users-file users.yaml: register users, continuing past failures
//     and reporting them at the end
//   - list-users: print registered users in registration order
//   - verify-credential --id N: report whether a credential is valid
//   - watch-notifications: stream committed notifications, either from the
//     Redis list the server publishes to (--redis-addr) or by polling the API
//     notification log (--from, --poll-interval)
//
// Example:
//
//	ledger-operator --server-addr=http://127.0.0.1:8080 \
//	    --caller=0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 \
//	    seed --users-file=./users.yaml
package main
