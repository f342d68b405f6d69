package enums

import "fmt"

// OperatorRole is the role carried in access tokens.
type OperatorRole string

const (
	OperatorRolePicker     OperatorRole = "picker"
	OperatorRoleSupervisor OperatorRole = "supervisor"
	OperatorRoleAdmin      OperatorRole = "admin"
	OperatorRoleSystem     OperatorRole = "system"
)

var validOperatorRoles = []OperatorRole{
	OperatorRolePicker,
	OperatorRoleSupervisor,
	OperatorRoleAdmin,
	OperatorRoleSystem,
}

// String implements fmt.Stringer.
func (r OperatorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known OperatorRole.
func (r OperatorRole) IsValid() bool {
	for _, candidate := range validOperatorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseOperatorRole converts raw input into an OperatorRole.
func ParseOperatorRole(value string) (OperatorRole, error) {
	for _, candidate := range validOperatorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid operator role %q", value)
}
