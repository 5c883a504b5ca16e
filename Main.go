package main

import (
	"FarmStore/config"
	"FarmStore/gateway"
	"FarmStore/jwt"
	"FarmStore/mailer"
	"FarmStore/routers"
	"time"
)

func main() {
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		panic("無法載入設定檔")
	}

	db, err := config.SetupMySQLConnection(cfg.Database)
	if err != nil {
		panic("無法連接到資料庫")
	}
	defer func() {
		dbInstance, _ := db.DB()
		_ = dbInstance.Close()
	}()

	rdb, err := config.SetupRedisConnection(cfg.Redis)
	if err != nil {
		panic("無法連接到Redis")
	}
	defer rdb.Close()

	tokens, err := jwt.NewManager(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath)
	if err != nil {
		panic("無法載入JWT金鑰")
	}

	gw := gateway.NewClient(gateway.Config{
		Host:        cfg.PhonePe.Host,
		MerchantID:  cfg.PhonePe.MerchantID,
		SaltKey:     cfg.PhonePe.SaltKey,
		SaltIndex:   cfg.PhonePe.SaltIndex,
		CallbackURL: cfg.PhonePe.CallbackURL,
		FrontendURL: cfg.Server.FrontendURL,
		Timeout:     time.Duration(cfg.PhonePe.TimeoutSeconds) * time.Second,
	})

	m := mailer.New(mailer.Config{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		From:       cfg.SMTP.From,
		AdminEmail: cfg.SMTP.AdminEmail,
	})
	defer m.Close()

	router := routers.SetupRouters(db, rdb, tokens, gw, m)
	router.Run(cfg.Server.Addr)
}
