package constants

const (
	Volunteer = "volunteer"
	Organizer = "organizer"
)

// ValidRoles is the set of roles an account can hold.
var ValidRoles = []string{Volunteer, Organizer}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
