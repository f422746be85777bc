package services

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"chatorder-backend/catalog"
	"chatorder-backend/models"
	"chatorder-backend/repositories"
)

// CatalogSync 从仓库加载商品并重建索引；支持定时和手动触发
type CatalogSync struct {
	products repositories.ProductRepository
	index    *catalog.Index
	hub      *Hub
	interval time.Duration

	isRunning int32
	notify    chan struct{}
}

func NewCatalogSync(products repositories.ProductRepository, index *catalog.Index, hub *Hub, interval time.Duration) *CatalogSync {
	return &CatalogSync{
		products: products,
		index:    index,
		hub:      hub,
		interval: interval,
		notify:   make(chan struct{}, 1), // 缓冲 1，多次触发合并成一次
	}
}

// ReloadResult 一次重建的统计
type ReloadResult struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// Reload 同步重建，读到的是仓库最新写入
func (s *CatalogSync) Reload() (ReloadResult, error) {
	products, err := s.products.FindAll()
	if err != nil {
		return ReloadResult{}, err
	}
	skipped := s.index.Rebuild(products)
	res := ReloadResult{Loaded: s.index.Len(), Skipped: skipped}
	if s.hub != nil {
		s.hub.Broadcast(models.WSMessage{Type: models.EventCatalogUpdated, Data: res})
	}
	return res, nil
}

// Import 解析 YAML 目录，整体写入仓库后重建索引
func (s *CatalogSync) Import(data []byte) (ReloadResult, error) {
	products, err := catalog.ParseYAML(data)
	if err != nil {
		return ReloadResult{}, err
	}
	if err := s.products.SyncProducts(products); err != nil {
		return ReloadResult{}, err
	}
	return s.Reload()
}

func (s *CatalogSync) ImportFile(path string) (ReloadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ReloadResult{}, err
	}
	return s.Import(data)
}

// Trigger 非阻塞地请求一次后台重建
func (s *CatalogSync) Trigger() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *CatalogSync) Start(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&s.isRunning, 0, 1) {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("panic", r).Error("❌ 目录同步崩溃，重启")
				atomic.StoreInt32(&s.isRunning, 0)
				s.Start(ctx)
				return
			}
			atomic.StoreInt32(&s.isRunning, 0)
		}()

		var tick <-chan time.Time
		if s.interval > 0 {
			ticker := time.NewTicker(s.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		logrus.WithField("interval", s.interval).Info("🚀 目录同步已启动")
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.notify:
			case <-tick:
			}
			if res, err := s.Reload(); err != nil {
				logrus.WithError(err).Error("❌ 目录重建失败")
			} else {
				logrus.WithFields(logrus.Fields{"loaded": res.Loaded, "skipped": res.Skipped}).Debug("🔄 目录已刷新")
			}
		}
	}()
}
