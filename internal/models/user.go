package models

// UserRole represents the staff roles recognised by the fees API.
type UserRole string

const (
	RoleDirector  UserRole = "DIRECTOR"
	RoleSecretary UserRole = "SECRETARY"
)
