package models

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

// 付款狀態
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusPaid       = "paid"
	PaymentStatusFailed     = "failed"
)

// 出貨狀態，與付款狀態為獨立的兩軸
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// 付款方式
const (
	PaymentModeCOD        = "CashOnDelivery"
	PaymentModePhonePe    = "PhonePe"
	PaymentModeCard       = "Card"
	PaymentModeUPI        = "UPI"
	PaymentModeNetBanking = "NetBanking"
)

type Order struct {
	gorm.Model
	UserID              uint `gorm:"foreignKey:UserID"`
	User                User
	Products            []OrderItem `gorm:"foreignKey:OrderID"`
	TotalBill           float64     `gorm:"not null"`
	DeliveryAddress     string      `gorm:"not null"`
	Phone               string      `gorm:"not null"`
	PaymentMode         string      `gorm:"not null"`
	PaymentStatus       string      `gorm:"not null;default:pending"`
	TransactionID       *string     `gorm:"uniqueIndex"`
	ProviderReferenceID string
	Status              string          `gorm:"not null;default:pending"`
	Timeline            []TimelineEntry `gorm:"foreignKey:OrderID"`
}

// 出貨歷程，只增不刪不改
type TimelineEntry struct {
	gorm.Model
	OrderID uint      `gorm:"foreignKey:OrderID"`
	Status  string    `gorm:"not null"`
	Date    time.Time `gorm:"not null"`
}

func ValidPaymentMode(mode string) bool {
	switch mode {
	case PaymentModeCOD, PaymentModePhonePe, PaymentModeCard, PaymentModeUPI, PaymentModeNetBanking:
		return true
	}
	return false
}

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// 線上付款的前置條件：非貨到付款，且付款尚未成功(允許失敗後重試)
func (o *Order) CanPayOnline() bool {
	if o.PaymentMode == PaymentModeCOD {
		return false
	}
	return o.PaymentStatus == PaymentStatusPending || o.PaymentStatus == PaymentStatusFailed
}

// 已送達的訂單不可取消
func (o *Order) CanCancel() bool {
	return o.Status != OrderStatusDelivered
}

// 已送達後出貨狀態不可再變更
func (o *Order) CanUpdateStatus() bool {
	return o.Status != OrderStatusDelivered
}

// 出貨開始後收件資料不可再修改
func (o *Order) CanEditDelivery() bool {
	return o.Status == OrderStatusPending
}

// GetTransactionID 回傳交易編號，尚未設定時為空字串
func (o *Order) GetTransactionID() string {
	if o.TransactionID == nil {
		return ""
	}
	return *o.TransactionID
}

// PaymentLabel 由付款方式與付款狀態推導顯示文字，不落地儲存。
// 貨到付款的訂單永遠停在pending，對使用者顯示為已確認待到貨收款。
func (o *Order) PaymentLabel() string {
	if o.PaymentMode == PaymentModeCOD {
		return "訂單已確認，貨到付款"
	}
	switch o.PaymentStatus {
	case PaymentStatusProcessing:
		return "付款處理中"
	case PaymentStatusPaid:
		return "已付款"
	case PaymentStatusFailed:
		return "付款失敗"
	default:
		return "等待付款"
	}
}

// SortedTimeline 回傳依日期新到舊排序的歷程檢視，不改動儲存順序
func (o *Order) SortedTimeline() []TimelineEntry {
	view := make([]TimelineEntry, len(o.Timeline))
	copy(view, o.Timeline)
	sort.SliceStable(view, func(i, j int) bool {
		return view[i].Date.After(view[j].Date)
	})
	return view
}
