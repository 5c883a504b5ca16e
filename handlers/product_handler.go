package handlers

import (
	"FarmStore/models"
	"encoding/json"
	"errors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"log"
	"net/http"
	"strconv"
)

const productCacheKey = "products"

// 商品目錄為唯讀的外部協作對象，僅供品項顯示，
// 訂單金額仍以下單當下鎖定的單價為準。

func productView(product *models.Product) gin.H {
	return gin.H{
		"productId":   product.ID,
		"name":        product.Name,
		"price":       product.Price,
		"stock":       product.Stock,
		"description": product.Description,
		"imageUrl":    product.ImageURL,
	}
}

// 從資料庫重建Redis的商品快取
func refreshProductCache(c *gin.Context, db *gorm.DB, rdb *redis.Client) error {
	var products []models.Product
	if err := db.Find(&products).Error; err != nil {
		return err
	}

	rdb.Del(c, productCacheKey)

	for _, product := range products {
		productJSON, err := json.Marshal(product)
		if err != nil {
			log.Printf("無法序列化商品資料: %v", err)
			continue
		}
		err = rdb.ZAdd(c, productCacheKey, redis.Z{
			Score:  float64(product.ID),
			Member: productJSON,
		}).Err()
		if err != nil {
			log.Printf("無法將商品資料加入Redis: %v", err)
			continue
		}
	}

	return nil
}

// 查詢商品列表，優先讀Redis快取，沒有才回資料庫重建
func GetProductListHandler(c *gin.Context, db *gorm.DB, rdb *redis.Client) {
	limitInt, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limitInt < 1 {
		respondValidation(c, "查詢數量輸入錯誤")
		return
	}
	//限制最高查詢數量為50
	if limitInt > 50 {
		limitInt = 50
	}

	offsetInt, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offsetInt < 0 {
		respondValidation(c, "offset輸入錯誤")
		return
	}

	if rdb.ZCard(c, productCacheKey).Val() == 0 {
		if err := refreshProductCache(c, db, rdb); err != nil {
			respondInternal(c, "無法讀取商品列表")
			return
		}
	}

	redisProducts, err := rdb.ZRange(c, productCacheKey, int64(offsetInt), int64(offsetInt+limitInt-1)).Result()
	if err != nil {
		respondInternal(c, "無法從Redis讀取商品列表")
		return
	}

	productsData := make([]gin.H, 0, len(redisProducts))
	for _, redisProduct := range redisProducts {
		var product models.Product
		if err := json.Unmarshal([]byte(redisProduct), &product); err != nil {
			log.Printf("無法反序列化商品資料: %v", err)
			continue
		}
		productsData = append(productsData, productView(&product))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "成功讀取商品列表",
		"products":   productsData,
		"totalCount": rdb.ZCard(c, productCacheKey).Val(),
	})
}

// 查詢單一商品
func GetProductDataHandler(c *gin.Context, db *gorm.DB) {
	productID := c.Param("productID")
	if _, err := strconv.ParseUint(productID, 10, 64); err != nil {
		respondValidation(c, "商品編號格式錯誤")
		return
	}

	var product models.Product
	err := db.First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "找不到商品")
			return
		}
		respondInternal(c, "查詢商品失敗")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "成功查詢商品",
		"product": productView(&product),
	})
}
