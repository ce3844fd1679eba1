package security

import "crypto/subtle"

// DemoUser is a fixed account that can sign in while demo mode is on.
type DemoUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	password string
}

var demoUsers = []DemoUser{
	{ID: "demo-admin-1", Email: "admin@example.com", Name: "Admin User", Role: RoleAdmin, password: "admin123"},
	{ID: "demo-manager-1", Email: "manager@example.com", Name: "Manager User", Role: RoleManager, password: "manager123"},
	{ID: "demo-viewer-1", Email: "viewer@example.com", Name: "Viewer User", Role: RoleViewer, password: "viewer123"},
}

// DemoUsers lists the demo accounts without their passwords.
func DemoUsers() []DemoUser {
	out := make([]DemoUser, len(demoUsers))
	for i, u := range demoUsers {
		u.password = ""
		out[i] = u
	}
	return out
}

// ValidateDemoUser returns the account matching the credentials, or nil.
func ValidateDemoUser(email, password string) *DemoUser {
	for _, u := range demoUsers {
		if u.Email != email {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(u.password), []byte(password)) != 1 {
			return nil
		}
		u.password = ""
		return &u
	}
	return nil
}
