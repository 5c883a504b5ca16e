package handlers

import (
	"FarmStore/jwt"
	"FarmStore/models"
	"errors"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"log"
	"net/http"
	"regexp"
	"time"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{8,20}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)
)

// 檢查使用者名稱是否合法
func ValidateUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// 檢查信箱是否合法
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// 檢查密碼長度是否合法
func ValidatePassword(password string) bool {
	return len(password) >= 8 && len(password) <= 50
}

// 註冊使用者帳戶。帳號系統只是此引擎的身分來源，僅保留最低限度的功能
func RegisterHandler(c *gin.Context, db *gorm.DB) {
	var registerReq struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
		Address  string `json:"address"`
		Phone    string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&registerReq); err != nil {
		respondValidation(c, "username, email, password 為必填欄位")
		return
	}

	if !ValidateUsername(registerReq.Username) {
		respondValidation(c, "註冊失敗:不合法的使用者名稱")
		return
	}
	if !ValidateEmail(registerReq.Email) {
		respondValidation(c, "註冊失敗:不合法的信箱")
		return
	}
	if !ValidatePassword(registerReq.Password) {
		respondValidation(c, "註冊失敗:不合法的密碼")
		return
	}

	//將密碼Hash後儲存
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registerReq.Password), bcrypt.DefaultCost)
	if err != nil {
		respondInternal(c, "無法生成Hashed密碼")
		return
	}

	newUser := models.User{
		Username: registerReq.Username,
		Email:    registerReq.Email,
		Password: string(hashedPassword),
		Name:     registerReq.Name,
		Address:  registerReq.Address,
		Phone:    registerReq.Phone,
		Role:     models.RoleUser,
	}
	if err := db.Create(&newUser).Error; err != nil {
		if isDuplicateKey(err) {
			respondConflict(c, "註冊失敗:使用者名稱或信箱已被使用")
			return
		}
		log.Printf("儲存使用者資料失敗: %v", err)
		respondInternal(c, "無法儲存使用者資料至資料庫")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "使用者已成功註冊",
		"username": newUser.Username,
	})
}

func LoginHandler(c *gin.Context, db *gorm.DB, tokens *jwt.Manager) {
	if _, ok := c.Get("UserID"); ok {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "已經登入",
		})
		return
	}

	var loginReq struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		respondValidation(c, "username 與 password 為必填欄位")
		return
	}

	var user models.User
	err := db.First(&user, "Username = ?", loginReq.Username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondValidation(c, "帳號或密碼錯誤")
			return
		}
		respondInternal(c, "資料庫錯誤")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(loginReq.Password)); err != nil {
		respondValidation(c, "帳號或密碼錯誤")
		return
	}

	tokenExpiredTime := time.Now().Add(time.Hour * 24)
	token, err := tokens.GenerateToken(user.ID, user.Role, tokenExpiredTime.Unix())
	if err != nil {
		respondInternal(c, "生成JWT Token錯誤")
		return
	}

	loginToken := models.LoginToken{
		Token:          token,
		ExpirationTime: tokenExpiredTime,
		UserID:         user.ID,
		Role:           user.Role,
	}
	if err := db.Create(&loginToken).Error; err != nil {
		respondInternal(c, "儲存Login Token失敗")
		return
	}

	c.Header("Authorization", "Bearer "+token)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "成功登入",
	})
}

func LogOutHandler(c *gin.Context, db *gorm.DB) {
	token, exists := c.Get("Token")
	if !exists {
		respondValidation(c, "無法取得Token")
		return
	}

	//刪除LoginToken後此Token即失效
	result := db.Delete(&models.LoginToken{}, "Token = ?", token)
	if result.Error != nil {
		respondInternal(c, "資料庫錯誤")
		return
	}
	if result.RowsAffected == 0 {
		respondValidation(c, "找不到此token或已登出")
		return
	}

	c.Header("Authorization", "")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "成功登出",
	})
}
