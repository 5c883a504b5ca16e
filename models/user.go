package models

import "gorm.io/gorm"

// 角色
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	gorm.Model
	Username    string `gorm:"unique;not null"`
	Email       string `gorm:"unique;not null"`
	Password    string `gorm:"not null"`
	Name        string
	Address     string
	Phone       string
	Orders      []Order
	LoginTokens []LoginToken
	Role        string `gorm:"not null;default:user"`
}
