package handlers

import (
	"FarmStore/models"

	"github.com/gin-gonic/gin"
)

// 訂單操作
const (
	ActionView    = "view"
	ActionEdit    = "edit"
	ActionCancel  = "cancel"
	ActionPay     = "pay"
	ActionFulfill = "fulfill"
)

// CanAccessOrder 集中所有訂單授權判斷：
// admin不受限；一般使用者只能操作自己的訂單，且出貨管理只開放給admin。
func CanAccessOrder(userID uint, role string, order *models.Order, action string) bool {
	if role == models.RoleAdmin {
		return true
	}
	if order.UserID != userID {
		return false
	}
	return action != ActionFulfill
}

// currentActor 從Context取出已驗證的使用者身分
func currentActor(c *gin.Context) (uint, string, bool) {
	userID, ok := c.Get("UserID")
	if !ok {
		return 0, "", false
	}
	role, ok := c.Get("Role")
	if !ok {
		return 0, "", false
	}
	id, ok := userID.(uint)
	if !ok {
		return 0, "", false
	}
	name, ok := role.(string)
	if !ok {
		return 0, "", false
	}
	return id, name, true
}
