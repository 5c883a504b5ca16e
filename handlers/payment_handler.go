package handlers

import (
	"FarmStore/gateway"
	"FarmStore/models"
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"log"
	"net/http"
	"strconv"
	"time"
)

// markOrderPaid 是callback與verify共用的定向更新：以交易編號為條件，
// 只改付款相關欄位。重複套用結果相同，先到先贏，後到變成同值覆寫。
func markOrderPaid(db *gorm.DB, merchantTxnID, providerRefID string) (int64, error) {
	updates := map[string]interface{}{
		"payment_status": models.PaymentStatusPaid,
		"payment_mode":   models.PaymentModePhonePe,
	}
	if providerRefID != "" {
		updates["provider_reference_id"] = providerRefID
	}

	result := db.
		Model(&models.Order{}).
		Where("transaction_id = ?", merchantTxnID).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// 驗證失敗時標記failed。與markOrderPaid一樣以交易編號為條件，
// 且已是paid的訂單不退轉，交易編號保持原值供日後對帳。
func markOrderFailed(db *gorm.DB, merchantTxnID string) (int64, error) {
	result := db.
		Model(&models.Order{}).
		Where("transaction_id = ? AND payment_status <> ?", merchantTxnID, models.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusFailed,
			"payment_mode":   models.PaymentModePhonePe,
		})
	return result.RowsAffected, result.Error
}

// 貨到付款確認：發一組COD交易編號，付款狀態維持pending等待到貨收款，
// 不打任何外部服務。重複呼叫回傳同一組編號。
func ConfirmCODHandler(c *gin.Context, db *gorm.DB) {
	userID, role, ok := currentActor(c)
	if !ok {
		respondInternal(c, "無法取得使用者ID")
		return
	}

	var req struct {
		OrderID uint `json:"orderId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "orderId 為必填欄位")
		return
	}

	var order models.Order
	err := db.First(&order, "id = ?", req.OrderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "找不到訂單")
			return
		}
		respondInternal(c, "查詢訂單失敗")
		return
	}

	if !CanAccessOrder(userID, role, &order, ActionPay) {
		respondForbidden(c, "沒有權限操作此訂單")
		return
	}
	if order.PaymentMode != models.PaymentModeCOD {
		respondInvalidTransition(c, "非貨到付款訂單，請改走線上付款")
		return
	}

	if order.TransactionID != nil {
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"message":       "訂單已確認",
			"orderId":       order.ID,
			"transactionId": *order.TransactionID,
			"paymentStatus": order.PaymentStatus,
		})
		return
	}

	txnID := fmt.Sprintf("COD%d", time.Now().UnixMilli())
	result := db.
		Model(&models.Order{}).
		Where("id = ? AND transaction_id IS NULL", order.ID).
		Update("transaction_id", txnID)
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			respondConflict(c, "交易編號重複，請重試")
			return
		}
		log.Printf("寫入COD交易編號失敗: %v", result.Error)
		respondInternal(c, "確認訂單失敗")
		return
	}
	if result.RowsAffected == 0 {
		//另一個確認請求搶先寫入，回傳已存在的編號
		var current models.Order
		if err := db.First(&current, "id = ?", order.ID).Error; err != nil || current.TransactionID == nil {
			respondInternal(c, "確認訂單失敗")
			return
		}
		txnID = *current.TransactionID
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "訂單已確認，貨到付款",
		"orderId":       order.ID,
		"transactionId": txnID,
		"paymentStatus": models.PaymentStatusPending,
	})
}

// 發起線上付款：提供商受理後才寫入交易編號與processing；
// 失敗或逾時不留任何中間狀態，訂單維持原樣。
func InitiatePaymentHandler(c *gin.Context, db *gorm.DB, gw *gateway.Client) {
	userID, role, ok := currentActor(c)
	if !ok {
		respondInternal(c, "無法取得使用者ID")
		return
	}

	var req struct {
		OrderID     uint    `json:"orderId" binding:"required"`
		Amount      float64 `json:"amount"`
		RedirectURL string  `json:"redirectUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "orderId 為必填欄位")
		return
	}

	var order models.Order
	err := db.First(&order, "id = ?", req.OrderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "找不到訂單")
			return
		}
		respondInternal(c, "查詢訂單失敗")
		return
	}

	if !CanAccessOrder(userID, role, &order, ActionPay) {
		respondForbidden(c, "沒有權限操作此訂單")
		return
	}
	if !order.CanPayOnline() {
		respondInvalidTransition(c, "此訂單目前不可發起線上付款")
		return
	}

	//金額以訂單為準，不採用客戶端傳值
	result, err := gw.Initiate(c.Request.Context(), gateway.InitiateRequest{
		OrderID:     strconv.FormatUint(uint64(order.ID), 10),
		UserID:      strconv.FormatUint(uint64(order.UserID), 10),
		Amount:      order.TotalBill,
		Phone:       order.Phone,
		RedirectURL: req.RedirectURL,
	})
	if err != nil {
		log.Printf("發起線上付款失敗: %v", err)
		respondGateway(c, "發起付款失敗，請稍後重試")
		return
	}

	err = db.
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"transaction_id": result.MerchantTransactionID,
			"payment_mode":   models.PaymentModePhonePe,
			"payment_status": models.PaymentStatusProcessing,
		}).
		Error
	if err != nil {
		if isDuplicateKey(err) {
			respondConflict(c, "交易編號重複，請重試")
			return
		}
		log.Printf("寫入交易資訊失敗: %v", err)
		respondInternal(c, "寫入交易資訊失敗")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"paymentUrl":    result.PaymentURL,
		"transactionId": result.MerchantTransactionID,
	})
}

// 主動向提供商驗證付款結果。可重複呼叫：
// 已是paid的訂單再驗一次只會覆寫相同欄位，不觸發額外效果。
func VerifyPaymentHandler(c *gin.Context, db *gorm.DB, gw *gateway.Client) {
	userID, role, ok := currentActor(c)
	if !ok {
		respondInternal(c, "無法取得使用者ID")
		return
	}

	var req struct {
		OrderID             uint   `json:"orderId" binding:"required"`
		TransactionID       string `json:"transactionId" binding:"required"`
		ProviderReferenceID string `json:"providerReferenceId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "orderId 與 transactionId 為必填欄位")
		return
	}

	var order models.Order
	err := db.First(&order, "id = ?", req.OrderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "找不到訂單")
			return
		}
		respondInternal(c, "查詢訂單失敗")
		return
	}

	if !CanAccessOrder(userID, role, &order, ActionPay) {
		respondForbidden(c, "沒有權限操作此訂單")
		return
	}

	//只驗證訂單自己的交易編號，不讓任意編號改寫訂單狀態
	if order.GetTransactionID() != req.TransactionID {
		respondValidation(c, "交易編號與訂單不符")
		return
	}

	result, err := gw.Verify(c.Request.Context(), req.TransactionID)
	if err != nil {
		//連不上提供商時不猜測結果，訂單維持最後寫入的狀態
		log.Printf("付款驗證失敗: %v", err)
		respondGateway(c, "付款驗證失敗，請稍後重試")
		return
	}

	if result.Success {
		refID := req.ProviderReferenceID
		if refID == "" {
			refID = result.ProviderReferenceID
		}
		if _, err := markOrderPaid(db, req.TransactionID, refID); err != nil {
			log.Printf("更新付款狀態失敗: %v", err)
			respondInternal(c, "更新付款狀態失敗")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"status":  "success",
			"message": "付款驗證成功",
		})
		return
	}

	rows, err := markOrderFailed(db, req.TransactionID)
	if err != nil {
		log.Printf("標記付款失敗時發生錯誤: %v", err)
	}
	if rows == 0 {
		//回呼可能已搶先標記paid，以訂單目前狀態回覆而不退轉
		var current models.Order
		if db.First(&current, "id = ?", order.ID).Error == nil &&
			current.PaymentStatus == models.PaymentStatusPaid {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"status":  "success",
				"message": "付款驗證成功",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  "failed",
		"message": "付款未完成",
	})
}

// 提供商回呼端點：不驗證呼叫者，僅處理終態COMPLETED，
// 中間狀態留給使用者主動驗證。無論內部結果一律回200，避免提供商重送風暴。
func PaymentCallbackHandler(c *gin.Context, db *gorm.DB) {
	ack := func() {
		c.JSON(http.StatusOK, gin.H{"success": true})
	}

	var payload struct {
		TransactionID         string `json:"transactionId"`
		MerchantID            string `json:"merchantId"`
		MerchantTransactionID string `json:"merchantTransactionId"`
		Amount                int64  `json:"amount"`
		PaymentState          string `json:"paymentState"`
		PaymentInstrument     struct {
			Type                string `json:"type"`
			ProviderReferenceID string `json:"providerReferenceId"`
		} `json:"paymentInstrument"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("解析付款回呼失敗: %v", err)
		ack()
		return
	}

	if payload.PaymentState != gateway.StateCompleted {
		ack()
		return
	}

	rows, err := markOrderPaid(db, payload.MerchantTransactionID, payload.PaymentInstrument.ProviderReferenceID)
	if err != nil {
		log.Printf("處理付款回呼失敗: %v", err)
	} else if rows == 0 {
		//查無此交易編號(或狀態已相同)，記錄後照樣回成功，提供商重送也無濟於事
		log.Printf("付款回呼查無交易編號 %s 對應的待更新訂單", payload.MerchantTransactionID)
	}

	ack()
}

// 查詢單筆訂單的付款資訊，僅限本人或admin
func GetOrderPaymentHandler(c *gin.Context, db *gorm.DB) {
	userID, role, ok := currentActor(c)
	if !ok {
		respondInternal(c, "無法取得使用者ID")
		return
	}

	var order models.Order
	err := db.First(&order, "id = ?", c.Param("orderID")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "找不到此訂單的付款資訊")
			return
		}
		respondInternal(c, "查詢付款資訊失敗")
		return
	}

	if !CanAccessOrder(userID, role, &order, ActionView) {
		respondForbidden(c, "沒有權限查看此訂單的付款資訊")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"payment": paymentView(&order),
	})
}

// 查詢全部訂單的付款資訊，admin限定(路由已擋權限)
func ListPaymentsHandler(c *gin.Context, db *gorm.DB) {
	var orders []models.Order
	err := db.Order("created_at DESC").Find(&orders).Error
	if err != nil {
		log.Printf("查詢付款列表失敗: %v", err)
		respondInternal(c, "查詢付款列表失敗")
		return
	}

	payments := make([]gin.H, 0, len(orders))
	for i := range orders {
		payments = append(payments, paymentView(&orders[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"payments": payments,
	})
}

func paymentView(order *models.Order) gin.H {
	return gin.H{
		"orderId":             order.ID,
		"amount":              order.TotalBill,
		"paymentMode":         order.PaymentMode,
		"paymentStatus":       order.PaymentStatus,
		"paymentLabel":        order.PaymentLabel(),
		"transactionId":       order.GetTransactionID(),
		"providerReferenceId": order.ProviderReferenceID,
		"createdAt":           order.CreatedAt,
		"updatedAt":           order.UpdatedAt,
	}
}
