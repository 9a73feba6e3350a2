package models

import (
	"fmt"
	"strings"
)

// Role identifies which participant sent a message.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleDoctor:
		return RoleDoctor, nil
	case RolePatient:
		return RolePatient, nil
	default:
		return "", fmt.Errorf("invalid role %q (expected doctor or patient)", s)
	}
}

// Toggle returns the other participant.
func (r Role) Toggle() Role {
	if r == RoleDoctor {
		return RolePatient
	}
	return RoleDoctor
}

// Label returns the display name of the role.
func (r Role) Label() string {
	switch r {
	case RoleDoctor:
		return "Doctor"
	case RolePatient:
		return "Patient"
	default:
		return string(r)
	}
}
