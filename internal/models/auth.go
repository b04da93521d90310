package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleLecturer   UserRole = "LECTURER"
	RoleStudent    UserRole = "STUDENT"
)

// JWTClaims represents the access token payload issued by the campus auth service.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	ProgramID string   `json:"program_id"`
	FullName  string   `json:"full_name"`
	jwt.RegisteredClaims
}

// CanActOnProgram reports whether the actor administers programID.
func (c *JWTClaims) CanActOnProgram(programID string) bool {
	if c == nil {
		return false
	}
	if c.Role == RoleSuperAdmin {
		return true
	}
	return c.Role == RoleAdmin && c.ProgramID != "" && c.ProgramID == programID
}
