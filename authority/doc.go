// Package authority implements the Identity & Access Authority, the root of
// trust for the registry suite.
//
// The Authority keeps one User per address with a globally unique user id and
// an immutable role, maintains per-role registration counters, and binds the
// satellite ledgers' addresses exactly once through Initialize. Satellites
// receive the Authority as an interfaces.AccessAuthority at construction and
// call CheckRole inside their own transaction before every mutation.
//
// The deploying account is registered as the root administrator (user id
// ADMIN001). It is protected by a dedicated guard: DeactivateUser rejects it
// with a StateError regardless of the caller's role.
package authority
