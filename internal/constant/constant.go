package constant

const (
	Error   = "error"
	Data    = "data"
	Message = "message"
)

// Roles recognized across the dashboard. Analysts and admins may trigger
// and steer automated responses; viewers only observe.
const (
	RoleViewer  = "viewer"
	RoleAnalyst = "analyst"
	RoleAdmin   = "admin"
)
