package handlers

import (
	"FarmStore/mailer"
	"FarmStore/models"
	"errors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"log"
	"net/http"
	"strconv"
	"time"
)

type orderItemReq struct {
	ProductID uint    `json:"productId" binding:"required"`
	Quantity  uint    `json:"quantity" binding:"required"`
	Price     float64 `json:"price"`
}

type timelineEntryReq struct {
	Status string    `json:"status" binding:"required"`
	Date   time.Time `json:"date"`
}

// orderView 組出訂單的輸出格式，歷程只在檢視時做新到舊排序
func orderView(order *models.Order) gin.H {
	products := make([]gin.H, 0, len(order.Products))
	for _, item := range order.Products {
		productData := gin.H{
			"productId": item.ProductID,
			"quantity":  item.Quantity,
			"price":     item.Price,
		}
		if item.Product.ID != 0 {
			productData["name"] = item.Product.Name
			productData["imageUrl"] = item.Product.ImageURL
		}
		products = append(products, productData)
	}

	timeline := make([]gin.H, 0, len(order.Timeline))
	for _, entry := range order.SortedTimeline() {
		timeline = append(timeline, gin.H{
			"status": entry.Status,
			"date":   entry.Date,
		})
	}

	return gin.H{
		"orderId":             order.ID,
		"userId":              order.UserID,
		"products":            products,
		"totalBill":           order.TotalBill,
		"deliveryAddress":     order.DeliveryAddress,
		"phone":               order.Phone,
		"paymentMode":         order.PaymentMode,
		"paymentStatus":       order.PaymentStatus,
		"paymentLabel":        order.PaymentLabel(),
		"transactionId":       order.GetTransactionID(),
		"providerReferenceId": order.ProviderReferenceID,
		"status":              order.Status,
		"timeline":            timeline,
		"orderTime":           order.CreatedAt,
		"updatedAt":           order.UpdatedAt,
	}
}

func findOrder(db *gorm.DB, orderID string) (*models.Order, error) {
	var order models.Order
	err := db.
		Preload("Products.Product").
		Preload("Timeline").
		First(&order, "id = ?", orderID).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// 建立訂單。總金額一律由伺服器重算，不信任客戶端傳來的總額
func CreateOrderHandler(c *gin.Context, db *gorm.DB, m *mailer.Mailer) {
	userID, _, ok := currentActor(c)
	if !ok {
		respondInternal(c, "無法取得使用者ID")
		return
	}

	var orderReq struct {
		Products        []orderItemReq `json:"products" binding:"required"`
		DeliveryAddress string         `json:"deliveryAddress" binding:"required"`
		Phone           string         `json:"phone" binding:"required"`
		PaymentMode     string         `json:"paymentMode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&orderReq); err != nil {
		respondValidation(c, "products, deliveryAddress, phone, paymentMode 為必填欄位")
		return
	}
	if len(orderReq.Products) == 0 {
		respondValidation(c, "訂單至少需要一項商品")
		return
	}
	if !models.ValidPaymentMode(orderReq.PaymentMode) {
		respondValidation(c, "不支援的付款方式")
		return
	}

	newOrder := models.Order{
		UserID:          userID,
		DeliveryAddress: orderReq.DeliveryAddress,
		Phone:           orderReq.Phone,
		PaymentMode:     orderReq.PaymentMode,
		PaymentStatus:   models.PaymentStatusPending,
		Status:          models.OrderStatusPending,
	}

	//單價鎖定在下單當下
	totalBill := 0.0
	for _, item := range orderReq.Products {
		if item.Quantity < 1 {
			respondValidation(c, "商品數量需至少為1")
			return
		}
		if item.Price < 0 {
			respondValidation(c, "商品單價不可為負數")
			return
		}
		newOrder.Products = append(newOrder.Products, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
		totalBill += item.Price * float64(item.Quantity)
	}
	newOrder.TotalBill = totalBill

	if err := db.Create(&newOrder).Error; err != nil {
		log.Printf("提交訂單失敗: %v", err)
		respondInternal(c, "提交訂單失敗")
		return
	}

	//通知信寄送與否不影響下單結果
	m.SubmitOrderNotification(&newOrder)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "成功送出訂單",
		"order":   orderView(&newOrder),
	})
}

// 查詢單筆訂單，僅限本人或admin
func GetOrderHandler(c *gin.Context, db *gorm.DB) {
	userID, role, ok := currentActor(c)
	if !ok {
		respondInternal(c, "無法取得使用者ID")
		return
	}

	order, err := findOrder(db, c.Param("orderID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "找不到訂單")
			return
		}
		respondInternal(c, "查詢訂單失敗")
		return
	}

	if !CanAccessOrder(userID, role, order, ActionView) {
		respondForbidden(c, "沒有權限查看此訂單")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "成功查詢訂單",
		"order":   orderView(order),
	})
}

// 查詢自己的訂單列表，新到舊
func GetMyOrdersHandler(c *gin.Context, db *gorm.DB) {
	userID, _, ok := currentActor(c)
	if !ok {
		respondInternal(c, "無法取得使用者ID")
		return
	}

	listOrdersByUser(c, db, userID)
}

// 查詢指定使用者的訂單列表，僅限本人或admin
func ListOrdersByUserHandler(c *gin.Context, db *gorm.DB) {
	userID, role, ok := currentActor(c)
	if !ok {
		respondInternal(c, "無法取得使用者ID")
		return
	}

	targetID, err := strconv.ParseUint(c.Param("userID"), 10, 64)
	if err != nil {
		respondValidation(c, "使用者編號格式錯誤")
		return
	}

	if role != models.RoleAdmin && uint(targetID) != userID {
		respondForbidden(c, "沒有權限查看此使用者的訂單")
		return
	}

	listOrdersByUser(c, db, uint(targetID))
}

func listOrdersByUser(c *gin.Context, db *gorm.DB, userID uint) {
	var orders []models.Order
	err := db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Preload("Products.Product").
		Preload("Timeline").
		Find(&orders).
		Error
	if err != nil {
		log.Printf("查詢訂單列表失敗: %v", err)
		respondInternal(c, "查詢訂單列表失敗")
		return
	}

	orderList := make([]gin.H, 0, len(orders))
	for i := range orders {
		orderList = append(orderList, orderView(&orders[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "成功查詢訂單列表",
		"orders":  orderList,
	})
}

// 修改訂單。一般使用者可在出貨前改收件資料、在送達前取消；
// admin負責出貨狀態並在歷程追加紀錄(只增不刪)。
func UpdateOrderHandler(c *gin.Context, db *gorm.DB) {
	userID, role, ok := currentActor(c)
	if !ok {
		respondInternal(c, "無法取得使用者ID")
		return
	}

	var order models.Order
	err := db.First(&order, "id = ?", c.Param("orderID")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "找不到訂單")
			return
		}
		respondInternal(c, "查詢訂單失敗")
		return
	}

	if !CanAccessOrder(userID, role, &order, ActionEdit) {
		respondForbidden(c, "沒有權限修改此訂單")
		return
	}

	var updateReq struct {
		Status          string             `json:"status"`
		Phone           *string            `json:"phone"`
		DeliveryAddress *string            `json:"deliveryAddress"`
		Timeline        []timelineEntryReq `json:"timeline"`
	}
	if err := c.ShouldBindJSON(&updateReq); err != nil {
		respondValidation(c, "綁定請求資料錯誤")
		return
	}

	updates := map[string]interface{}{}

	//收件資料在出貨開始前才可修改
	if updateReq.Phone != nil || updateReq.DeliveryAddress != nil {
		if role != models.RoleAdmin && !order.CanEditDelivery() {
			respondInvalidTransition(c, "訂單已開始出貨，不可修改收件資料")
			return
		}
		if updateReq.Phone != nil {
			updates["phone"] = *updateReq.Phone
		}
		if updateReq.DeliveryAddress != nil {
			updates["delivery_address"] = *updateReq.DeliveryAddress
		}
	}

	if updateReq.Status != "" {
		if !models.ValidOrderStatus(updateReq.Status) {
			respondValidation(c, "不支援的訂單狀態")
			return
		}
		if updateReq.Status == models.OrderStatusCancelled && role != models.RoleAdmin {
			if !CanAccessOrder(userID, role, &order, ActionCancel) {
				respondForbidden(c, "沒有權限取消此訂單")
				return
			}
			if !order.CanCancel() {
				respondInvalidTransition(c, "訂單已送達，不可取消")
				return
			}
		} else {
			//取消以外的狀態變更屬於出貨管理
			if !CanAccessOrder(userID, role, &order, ActionFulfill) {
				respondForbidden(c, "沒有權限變更訂單狀態")
				return
			}
			if !order.CanUpdateStatus() {
				respondInvalidTransition(c, "訂單已送達，狀態不可再變更")
				return
			}
		}
		updates["status"] = updateReq.Status
	}

	if len(updateReq.Timeline) > 0 && role != models.RoleAdmin {
		respondForbidden(c, "沒有權限變更出貨歷程")
		return
	}

	tx := db.Begin()
	if tx.Error != nil {
		respondInternal(c, "開啟資料庫事務失敗")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if len(updates) > 0 {
		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			tx.Rollback()
			log.Printf("更新訂單失敗: %v", err)
			respondInternal(c, "更新訂單失敗")
			return
		}
	}

	for _, entry := range updateReq.Timeline {
		date := entry.Date
		if date.IsZero() {
			date = time.Now()
		}
		newEntry := models.TimelineEntry{
			OrderID: order.ID,
			Status:  entry.Status,
			Date:    date,
		}
		if err := tx.Create(&newEntry).Error; err != nil {
			tx.Rollback()
			log.Printf("新增出貨歷程失敗: %v", err)
			respondInternal(c, "新增出貨歷程失敗")
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		respondInternal(c, "提交事務失敗")
		return
	}

	updated, err := findOrder(db, c.Param("orderID"))
	if err != nil {
		respondInternal(c, "查詢更新後的訂單失敗")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "成功修改訂單",
		"order":   orderView(updated),
	})
}

// 訂單追蹤：回傳出貨狀態與新到舊的歷程
func TrackOrderHandler(c *gin.Context, db *gorm.DB) {
	orderID := c.Param("orderID")
	if _, err := strconv.ParseUint(orderID, 10, 64); err != nil {
		respondValidation(c, "訂單編號格式錯誤")
		return
	}

	var order models.Order
	err := db.Preload("Timeline").First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "找不到訂單")
			return
		}
		respondInternal(c, "查詢訂單失敗")
		return
	}

	timeline := make([]gin.H, 0, len(order.Timeline))
	for _, entry := range order.SortedTimeline() {
		timeline = append(timeline, gin.H{
			"status": entry.Status,
			"date":   entry.Date,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"status":   order.Status,
		"timeline": timeline,
	})
}
