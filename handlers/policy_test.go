package handlers

import (
	"testing"

	"FarmStore/models"

	"github.com/stretchr/testify/assert"
)

func TestCanAccessOrder(t *testing.T) {
	order := &models.Order{UserID: 7}

	//本人可以看、改、取消、付款
	assert.True(t, CanAccessOrder(7, models.RoleUser, order, ActionView))
	assert.True(t, CanAccessOrder(7, models.RoleUser, order, ActionEdit))
	assert.True(t, CanAccessOrder(7, models.RoleUser, order, ActionCancel))
	assert.True(t, CanAccessOrder(7, models.RoleUser, order, ActionPay))

	//出貨狀態只有admin能改
	assert.False(t, CanAccessOrder(7, models.RoleUser, order, ActionFulfill))
	assert.True(t, CanAccessOrder(99, models.RoleAdmin, order, ActionFulfill))

	//其他使用者一律擋下
	assert.False(t, CanAccessOrder(8, models.RoleUser, order, ActionView))
	assert.False(t, CanAccessOrder(8, models.RoleUser, order, ActionCancel))

	//admin任何動作都放行
	assert.True(t, CanAccessOrder(99, models.RoleAdmin, order, ActionView))
	assert.True(t, CanAccessOrder(99, models.RoleAdmin, order, ActionEdit))
}
