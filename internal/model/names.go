// Package model defines domain entities for the application.
package model

import "strings"

// Built-in role names.
const (
	RoleAdmin  = "ADMIN"
	RoleEditor = "EDITOR"
)

// rolePrefix is accepted on input and stripped during normalization.
const rolePrefix = "ROLE_"

// NormalizeRoleName trims, uppercases and strips an optional ROLE_ prefix.
func NormalizeRoleName(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	return strings.TrimPrefix(n, rolePrefix)
}

// NormalizePermissionName trims and lowercases a permission name.
func NormalizePermissionName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeUsername trims and lowercases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
