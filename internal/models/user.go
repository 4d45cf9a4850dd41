package models

import "time"

// UserType distinguishes the account kinds that can sign in.
type UserType string

const (
	UserTypeSchool  UserType = "school"
	UserTypeTeacher UserType = "teacher"
	UserTypeStudent UserType = "student"
)

// User represents an application user stored in the users table. Every user
// belongs to exactly one school; SchoolCode scopes all downstream queries.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	SchoolCode   string     `db:"school_code" json:"school_code"`
	UserType     UserType   `db:"user_type" json:"user_type"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
