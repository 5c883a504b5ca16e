package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"net/http"
)

// 錯誤分類代碼，固定對應HTTP狀態碼：
// VALIDATION_ERROR 400、FORBIDDEN 401、NOT_FOUND 404、
// INVALID_TRANSITION 400、CONFLICT 409、GATEWAY_ERROR 500、INTERNAL_ERROR 500。
// 回應一律是 {"success": false, "code": ..., "message": ...}，不外洩內部細節。
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeConflict          = "CONFLICT"
	CodeGateway           = "GATEWAY_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

func respondValidation(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"code":    CodeValidation,
		"message": message,
	})
}

func respondForbidden(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"code":    CodeForbidden,
		"message": message,
	})
}

func respondNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"code":    CodeNotFound,
		"message": message,
	})
}

func respondInvalidTransition(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"code":    CodeInvalidTransition,
		"message": message,
	})
}

func respondConflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, gin.H{
		"success": false,
		"code":    CodeConflict,
		"message": message,
	})
}

func respondGateway(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"code":    CodeGateway,
		"message": message,
	})
}

func respondInternal(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"code":    CodeInternal,
		"message": message,
	})
}

// 唯一索引衝突(交易編號重複)
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint")
}
