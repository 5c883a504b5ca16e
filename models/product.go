package models

import "gorm.io/gorm"

// 商品目錄僅供品項顯示，訂單金額以下單當下的品項單價為準
type Product struct {
	gorm.Model
	Name        string  `gorm:"not null"`
	Price       float64 `gorm:"not null"`
	Stock       uint    `gorm:"not null"`
	Description string
	ImageURL    string
}
