package models

import "time"

// User represents the canonical identity entity. Emails are stored lowercased;
// usernames are case-sensitive.
type User struct {
	ID            uint       `gorm:"column:id;primaryKey"`
	Username      string     `gorm:"column:username;type:text;not null;uniqueIndex:users_username_key"`
	Email         string     `gorm:"column:email;type:text;not null;uniqueIndex:users_email_key"`
	PasswordHash  string     `gorm:"column:password_hash;not null"`
	FirstName     *string    `gorm:"column:first_name"`
	LastName      *string    `gorm:"column:last_name"`
	Phone         *string    `gorm:"column:phone"`
	IsAdmin       bool       `gorm:"column:is_admin;not null;default:false"`
	EmailVerified bool       `gorm:"column:email_verified;not null;default:false"`
	LastLoginAt   *time.Time `gorm:"column:last_login_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
