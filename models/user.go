package models

import (
	"time"

	"gorm.io/gorm"
)

type Role struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:50;uniqueIndex;not null"`
}

const RoleAdmin = "admin"

type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"size:200;index"`
	NIP       *int64         `json:"nip,omitempty"`
	Username  string         `json:"username" gorm:"size:200;uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"size:255;not null"`
	RoleID    uint           `json:"role_id"`
	Role      *Role          `json:"role,omitempty"`
	LastLogin *time.Time     `json:"last_login,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
