// Package interfaces defines the domain types and the contracts shared by the
// registry components, separating definitions from implementations.
//
// # Domain Types
//
// User, Credential, AttendanceRecord and GradeRecord are the entities held by
// the Identity & Access Authority and the three satellite ledgers. Role and the
// status enums marshal as their upper-case names in JSON and YAML and accept
// either the name or the numeric value when parsing.
//
// # Errors
//
// Every rejected operation reports exactly one category, matched with
// errors.Is against ErrAuthorization, ErrNotFound, ErrValidation or ErrState.
// Concrete errors are *LedgerError values carrying a message.
//
// # Access Authority
//
// AccessAuthority is the read-only role oracle that satellite ledgers are
// constructed with. Satellites never look it up globally.
//
// # Storage Interfaces
//
// StorageBackend provides content-addressed storage for credential documents
// and supporting evidence across multiple backend types (file, S3, IPFS,
// Vault). Only content identifiers ever reach ledger state.
package interfaces
