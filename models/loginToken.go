package models

import (
	"gorm.io/gorm"
	"time"
)

// 已核發的Token，登出即刪除，驗證時查不到視同失效
type LoginToken struct {
	gorm.Model
	Token          string `gorm:"index"`
	ExpirationTime time.Time
	UserID         uint
	Role           string
}
