package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"chatorder-backend/catalog"
	"chatorder-backend/config"
	"chatorder-backend/database"
	"chatorder-backend/handlers"
	"chatorder-backend/repositories"
	"chatorder-backend/services"
	"chatorder-backend/utils"
)

// stores 同一组仓库接口，背后是 postgres 或内存
type stores struct {
	products  repositories.ProductRepository
	orders    repositories.OrderRepository
	customers repositories.CustomerRepository
	discounts repositories.DiscountRepository
}

func openStores(cfg config.DatabaseConfig) (stores, error) {
	if cfg.Driver == "memory" {
		logrus.Warn("⚠️ 使用内存存储，重启后订单会丢失")
		mem := repositories.NewMemStore()
		return stores{mem, mem, mem, mem}, nil
	}
	db, err := database.InitDB(cfg)
	if err != nil {
		return stores{}, err
	}
	return stores{
		products:  repositories.NewProductRepository(db),
		orders:    repositories.NewOrderRepository(db),
		customers: repositories.NewCustomerRepository(db),
		discounts: repositories.NewDiscountRepository(db),
	}, nil
}

func openBotState(cfg *config.Config) repositories.BotStateRepository {
	if cfg.Redis.Addr == "" {
		return repositories.NewMemBotStateRepository(cfg.AI.Enabled)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("⚠️ Redis 连接失败，机器人开关改存内存")
		return repositories.NewMemBotStateRepository(cfg.AI.Enabled)
	}
	return repositories.NewRedisBotStateRepository(client, cfg.Redis.KeyPrefix, cfg.AI.Enabled)
}

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		panic(err)
	}
	utils.SetupLogger(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	st, err := openStores(cfg.Database)
	if err != nil {
		panic(err)
	}
	bot := openBotState(cfg)

	hub := services.NewHub()
	go hub.Run()

	// 目录：配置了文件就先导入，否则用仓库里已有的
	index := catalog.NewIndex()
	catalogSync := services.NewCatalogSync(st.products, index, hub, time.Duration(cfg.Catalog.ReloadMinutes)*time.Minute)
	if cfg.Catalog.File != "" {
		if res, err := catalogSync.ImportFile(cfg.Catalog.File); err != nil {
			logrus.WithError(err).WithField("file", cfg.Catalog.File).Warn("⚠️ 目录文件导入失败，使用已有商品")
		} else {
			logrus.WithFields(logrus.Fields{"loaded": res.Loaded, "skipped": res.Skipped}).Info("📦 目录文件已导入")
		}
	}
	if index.Len() == 0 {
		if _, err := catalogSync.Reload(); err != nil {
			logrus.WithError(err).Error("❌ 加载商品失败")
		}
	}
	catalogSync.Start(context.Background())

	messenger := services.NewMessenger(cfg.Transport)
	notifier := services.NewNotifier(hub, messenger, cfg.Business.OwnerID)
	finalizer := services.NewFinalizer(st.orders, st.discounts, notifier, cfg.Delivery)

	var responder services.Responder
	if cfg.AI.APIKey != "" {
		responder = services.NewOpenAIResponder(cfg.AI)
	} else if cfg.AI.Enabled {
		logrus.Warn("⚠️ AI 已开启但没有 api_key，兜底回复不可用")
	}

	sessions := services.NewSessionManager(
		time.Duration(cfg.Session.InactivityMinutes)*time.Minute,
		time.Duration(cfg.Session.MailboxIdleSeconds)*time.Second,
	)
	engine := services.NewEngine(services.EngineDeps{
		Index:     index,
		Sessions:  sessions,
		Finalizer: finalizer,
		Customers: st.customers,
		Orders:    st.orders,
		BotState:  bot,
		Responder: responder,
		Messenger: messenger,
		Business:  cfg.Business,
		Delivery:  cfg.Delivery,
		AIRetry:   time.Duration(cfg.AI.RetryDelayMs) * time.Millisecond,
	})

	r := handlers.NewRouter(cfg, handlers.Router{
		Messages: handlers.NewMessageHandler(engine, cfg.Transport.Token),
		Auth:     handlers.NewAuthHandler(cfg.Auth, cfg.Business.OwnerID),
		Products: handlers.NewProductHandler(index, st.products, catalogSync),
		Admin:    handlers.NewAdminHandler(engine, st.orders, st.customers, st.discounts, bot),
		Hub:      hub,
	})

	logrus.WithField("port", cfg.Server.Port).Info("🚀 服务启动")
	if err := r.Run(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		logrus.WithError(err).Fatal("❌ 服务退出")
	}
}
