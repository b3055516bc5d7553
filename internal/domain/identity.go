package domain

// Identity is a person known to the external directory.
type Identity struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	Role        Role   `json:"role" yaml:"role"`
}

// IsElevated reports whether the identity may act on notes it is not party to.
func (i Identity) IsElevated() bool {
	return i.Role == RoleAdmin
}
