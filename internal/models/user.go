package models

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleSales   Role = "sales"
	RoleViewer  Role = "viewer"
)

// Roles lists the closed role enumeration.
func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleSales, RoleViewer}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSales, RoleViewer:
		return true
	}
	return false
}

// User is the authenticated operator as returned by the remote API.
// Permissions holds the explicit per-user override list; the effective
// permission set is the union of the role's static set and this list.
type User struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	DisplayName   string   `json:"displayName"`
	Role          Role     `json:"role"`
	Permissions   []string `json:"permissions"`
	Authenticated bool     `json:"authenticated"`
}

// RemoteSession is one entry in the account-wide session list. Multiple
// sessions may exist concurrently for one user; exactly one of them, the one
// this gateway holds, is current.
type RemoteSession struct {
	SessionID  string    `json:"session_id"`
	Device     string    `json:"device"`
	IP         string    `json:"ip"`
	Location   string    `json:"location"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	Current    bool      `json:"is_current"`
}
