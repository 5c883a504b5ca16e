package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"FarmStore/mailer"
	"FarmStore/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// 單一連線的記憶體資料庫，讓並發測試的goroutine看到同一份資料
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.LoginToken{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.TimelineEntry{},
	))

	return db
}

func setupTestMailer(t *testing.T) *mailer.Mailer {
	t.Helper()
	m := mailer.New(mailer.Config{})
	t.Cleanup(m.Close)
	return m
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedOrder(t *testing.T, db *gorm.DB, order *models.Order) *models.Order {
	t.Helper()
	require.NoError(t, db.Create(order).Error)
	return order
}

// 建立帶登入身分與JSON body的測試Context
func testContext(t *testing.T, method, target string, body any, userID uint, role string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	if role != "" {
		c.Set("UserID", userID)
		c.Set("Role", role)
	}

	return c, recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return resp
}

func reloadOrder(t *testing.T, db *gorm.DB, orderID uint) *models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, db.Preload("Products").Preload("Timeline").First(&order, "id = ?", orderID).Error)
	return &order
}
