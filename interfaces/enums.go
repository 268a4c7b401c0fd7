package interfaces

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is the access role held by a registered user. Numeric values are
// part of the public contract.
type Role uint8

const (
	RoleNone Role = iota
	RoleAdmin
	RoleLecturer
	RoleStudent
)

var roleNames = map[Role]string{
	RoleNone:     "NONE",
	RoleAdmin:    "ADMIN",
	RoleLecturer: "LECTURER",
	RoleStudent:  "STUDENT",
}

// Valid reports whether r can be assigned to a user.
func (r Role) Valid() bool { return r >= RoleAdmin && r <= RoleStudent }

func (r Role) String() string { return enumString(r, roleNames) }

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(b []byte) error {
	v, err := parseEnum("role", string(b), roleNames)
	*r = v
	return err
}

// ParseRole accepts a role name (case-insensitive) or its numeric value.
func ParseRole(s string) (Role, error) { return parseEnum("role", s, roleNames) }

// CredentialStatus is the lifecycle state of a credential. ACTIVE moves to
// REVOKED and never back.
type CredentialStatus uint8

const (
	CredentialStatusActive  CredentialStatus = 1
	CredentialStatusRevoked CredentialStatus = 2
)

var credentialStatusNames = map[CredentialStatus]string{
	CredentialStatusActive:  "ACTIVE",
	CredentialStatusRevoked: "REVOKED",
}

func (s CredentialStatus) String() string { return enumString(s, credentialStatusNames) }

func (s CredentialStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *CredentialStatus) UnmarshalText(b []byte) error {
	v, err := parseEnum("credential status", string(b), credentialStatusNames)
	*s = v
	return err
}

// AttendanceStatus is the attendance outcome of one session.
type AttendanceStatus uint8

const (
	AttendancePresent AttendanceStatus = iota
	AttendanceAbsent
	AttendanceLate
	AttendanceExcused
)

var attendanceStatusNames = map[AttendanceStatus]string{
	AttendancePresent: "PRESENT",
	AttendanceAbsent:  "ABSENT",
	AttendanceLate:    "LATE",
	AttendanceExcused: "EXCUSED",
}

func (s AttendanceStatus) Valid() bool { return s <= AttendanceExcused }

func (s AttendanceStatus) String() string { return enumString(s, attendanceStatusNames) }

func (s AttendanceStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *AttendanceStatus) UnmarshalText(b []byte) error {
	v, err := parseEnum("attendance status", string(b), attendanceStatusNames)
	*s = v
	return err
}

func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	return parseEnum("attendance status", s, attendanceStatusNames)
}

// GradeStatus is the lifecycle state of a grade component. Value 1 is not
// assigned.
type GradeStatus uint8

const (
	GradeStatusDraft    GradeStatus = 0
	GradeStatusApproved GradeStatus = 2
)

var gradeStatusNames = map[GradeStatus]string{
	GradeStatusDraft:    "DRAFT",
	GradeStatusApproved: "APPROVED",
}

func (s GradeStatus) String() string { return enumString(s, gradeStatusNames) }

func (s GradeStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *GradeStatus) UnmarshalText(b []byte) error {
	v, err := parseEnum("grade status", string(b), gradeStatusNames)
	*s = v
	return err
}

func enumString[T ~uint8](v T, names map[T]string) string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(v))
}

func parseEnum[T ~uint8](kind, s string, names map[T]string) (T, error) {
	s = strings.TrimSpace(s)
	for v, name := range names {
		if strings.EqualFold(name, s) {
			return v, nil
		}
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		if _, ok := names[T(n)]; ok {
			return T(n), nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, s)
}
