// Package main (cmd/httpserver) runs the university ledger registry server.
//
// On start the server creates an in-process ledger, deploys the Identity &
// Access Authority from --deployer, deploys the credential, attendance and
// grade ledgers, and binds them to the authority with a single
// initialization call. The deployer becomes the root administrator.
//
// Committed notifications are logged (--log-notifications) and optionally
// pushed to a Redis list (--redis-addr, --redis-key) for downstream
// consumers. Credential documents are stored in the content-addressed
// backends given by --storage, which may be repeated:
//
//	file:///var/lib/ledger/documents
//	s3://bucket/prefix?region=eu-west-1
//	ipfs://127.0.0.1:5001
//	vault://vault:8200/secret/documents?token=...
//
// Example usage:
//
//	ledger-server --deployer=0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 \
//	    --listen-addr=0.0.0.0:8080 \
//	    --storage=file:///var/lib/ledger/documents \
//	    --final-grade-strategy=weighted-by-max-score \
//	    --redis-addr=127.0.0.1:6379
//
// The server drains and shuts down gracefully on SIGINT/SIGTERM.
package main
