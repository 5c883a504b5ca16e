package routers

import (
	"FarmStore/gateway"
	"FarmStore/handlers"
	"FarmStore/jwt"
	"FarmStore/mailer"
	"FarmStore/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"net/http"
)

func SetupRouters(db *gorm.DB, rdb *redis.Client, tokens *jwt.Manager, gw *gateway.Client, m *mailer.Mailer) *gin.Engine {
	//建立Gin路由器
	router := gin.Default()
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Authorization")
		c.Next()
	})
	err := router.SetTrustedProxies(nil)
	if err != nil {
		return nil
	}

	router.Use(middleware.RequestIDMiddleware())

	//設定商品圖片靜態資源路徑
	router.Static("/uploads", "./uploads")

	router.OPTIONS("/*path", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Server is running",
		})
	})

	//金流提供商回呼端點，不經過任何身分驗證
	router.POST("/api/v1/payments/callback", func(context *gin.Context) {
		handlers.PaymentCallbackHandler(context, db)
	})

	////無須權限，使用中間件解析登入身分
	router.Use(middleware.AuthMiddleware(db, tokens))
	{
		//查詢商品列表
		router.GET("/api/v1/products", func(context *gin.Context) {
			handlers.GetProductListHandler(context, db, rdb)
		})
		//查詢商品詳細資料
		router.GET("/api/v1/products/:productID", func(context *gin.Context) {
			handlers.GetProductDataHandler(context, db)
		})
		//註冊帳號
		router.POST("/api/v1/register", func(context *gin.Context) {
			handlers.RegisterHandler(context, db)
		})
		//登入帳號
		router.POST("/api/v1/login", func(context *gin.Context) {
			handlers.LoginHandler(context, db, tokens)
		})

		////需要登入，使用中間件檢查是否登入
		loginRequired := router.Group("/api/v1")
		loginRequired.Use(middleware.CheckLoginMiddleware())
		{
			//送出訂單
			loginRequired.POST("/user/orders", func(context *gin.Context) {
				handlers.CreateOrderHandler(context, db, m)
			})
			//查詢自己的訂單列表
			loginRequired.GET("/user/orders", func(context *gin.Context) {
				handlers.GetMyOrdersHandler(context, db)
			})
			//查詢訂單詳細資訊
			loginRequired.GET("/user/orders/:orderID", func(context *gin.Context) {
				handlers.GetOrderHandler(context, db)
			})
			//修改訂單(收件資料/取消/出貨管理)
			loginRequired.PUT("/user/orders/:orderID", func(context *gin.Context) {
				handlers.UpdateOrderHandler(context, db)
			})
			//查詢指定使用者的訂單列表
			loginRequired.GET("/orders/user/:userID", func(context *gin.Context) {
				handlers.ListOrdersByUserHandler(context, db)
			})
			//訂單追蹤
			loginRequired.GET("/orders/:orderID/tracking", func(context *gin.Context) {
				handlers.TrackOrderHandler(context, db)
			})
			//貨到付款確認
			loginRequired.POST("/user/payments/cod", func(context *gin.Context) {
				handlers.ConfirmCODHandler(context, db)
			})
			//發起線上付款
			loginRequired.POST("/user/payments/initiate", func(context *gin.Context) {
				handlers.InitiatePaymentHandler(context, db, gw)
			})
			//驗證線上付款結果
			loginRequired.POST("/user/payments/verify", func(context *gin.Context) {
				handlers.VerifyPaymentHandler(context, db, gw)
			})
			//查詢訂單付款資訊
			loginRequired.GET("/user/payments/order/:orderID", func(context *gin.Context) {
				handlers.GetOrderPaymentHandler(context, db)
			})
			//登出
			loginRequired.POST("/user/logout", func(context *gin.Context) {
				handlers.LogOutHandler(context, db)
			})
		}

		////需要admin身分，使用中間件檢查是否登入及admin權限
		adminRequired := router.Group("/api/v1/admin")
		adminRequired.Use(middleware.CheckLoginMiddleware(), middleware.CheckAdminPermissionMiddleware())
		{
			//查詢全部付款資訊
			adminRequired.GET("/payments", func(context *gin.Context) {
				handlers.ListPaymentsHandler(context, db)
			})
		}
	}

	return router
}
