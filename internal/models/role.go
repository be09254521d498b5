package models

const (
	RoleViewer = "viewer"
	RoleSender = "sender"
	RoleAdmin  = "admin"
)

type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Level       int    `json:"level"`
	Description string `json:"description"`
}

// Covers reports whether r ranks at least as high as other.
func (r Role) Covers(other Role) bool {
	return r.Level >= other.Level
}
