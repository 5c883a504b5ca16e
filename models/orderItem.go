package models

import "gorm.io/gorm"

// 訂單品項，單價鎖定在下單當下，建立後不再變動
type OrderItem struct {
	gorm.Model
	OrderID   uint `gorm:"foreignKey:OrderID"`
	ProductID uint `gorm:"foreignKey:ProductID"`
	Product   Product
	Quantity  uint    `gorm:"not null"`
	Price     float64 `gorm:"not null"`
}
