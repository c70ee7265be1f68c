package http

// Session identifies the logged-in operator for the lifetime of the process.
// It is immutable: handlers read it, nothing writes it. The user id rides on
// every gateway call; the role decides which controls render.
type Session struct {
	UserID      string
	DisplayName string
	Role        string
}

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// CanEdit reports whether the session may mutate records. Pure function of
// the role: admins edit, viewers get a read-only dashboard.
func (s Session) CanEdit() bool {
	return s.Role == RoleAdmin
}
