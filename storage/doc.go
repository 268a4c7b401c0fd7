// Package storage stores credential documents and supporting evidence by
// content address. A credential only carries the "sha256:<hex>" reference of
// its document; the bytes live in one or more of these backends:
//
//   - file:///var/lib/university-ledger/documents
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=eu-west-1&endpoint=minio:9000
//   - ipfs://127.0.0.1:5001/?timeout=30s
//   - vault://vault.example.edu:8200/secret/university-ledger?token=...
//
// Every backend derives the content ID itself (SHA-256 of the bytes) and
// namespaces objects by content type. MultiStorageBackend writes to every
// available backend and reads from the first that has the content.
package storage
