package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const (
	userIDKey    contextKey = "userID"
	userRoleKey  contextKey = "userRole"
	projectIDKey contextKey = "projectID"
)

// WithUserID adds userID to the request context
func WithUserID(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	return r.WithContext(ctx)
}

// GetUserID retrieves userID from context, returns empty string if not found
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// WithUserRole adds the token role to the request context
func WithUserRole(r *http.Request, role string) *http.Request {
	ctx := context.WithValue(r.Context(), userRoleKey, role)
	return r.WithContext(ctx)
}

// GetUserRole retrieves the token role from context, returns empty string if not found
func GetUserRole(r *http.Request) string {
	role, _ := r.Context().Value(userRoleKey).(string)
	return role
}

// WithProjectID adds the scoping project ID to the request context
func WithProjectID(r *http.Request, projectID int64) *http.Request {
	ctx := context.WithValue(r.Context(), projectIDKey, projectID)
	return r.WithContext(ctx)
}

// GetProjectID retrieves the scoping project ID from context. Returns nil
// when the server runs unscoped.
func GetProjectID(r *http.Request) *int64 {
	projectID, ok := r.Context().Value(projectIDKey).(int64)
	if !ok {
		return nil
	}
	return &projectID
}
