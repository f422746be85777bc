package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tealeg/xlsx"

	"chatorder-backend/models"
	"chatorder-backend/repositories"
	"chatorder-backend/services"
)

// AdminHandler 店主管理接口，全部挂在 JWT 保护的路由组下
type AdminHandler struct {
	Engine    *services.Engine
	Orders    repositories.OrderRepository
	Customers repositories.CustomerRepository
	Discounts repositories.DiscountRepository
	BotState  repositories.BotStateRepository
}

func NewAdminHandler(engine *services.Engine, orders repositories.OrderRepository, customers repositories.CustomerRepository,
	discounts repositories.DiscountRepository, bot repositories.BotStateRepository) *AdminHandler {
	return &AdminHandler{Engine: engine, Orders: orders, Customers: customers, Discounts: discounts, BotState: bot}
}

// ---- 折扣 ----

func (h *AdminHandler) GetDiscounts(c *gin.Context) {
	cfg, err := h.Discounts.Get()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *AdminHandler) SaveDiscounts(c *gin.Context) {
	var req models.DiscountConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.Discounts.Save(req)
	if err != nil {
		respondError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{"enabled": saved.Enabled, "rules": len(saved.Rules)}).Info("💸 折扣配置已更新")
	c.JSON(http.StatusOK, saved)
}

// ---- 机器人开关 ----

func (h *AdminHandler) Status(c *gin.Context) {
	st, err := h.Engine.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type botReq struct {
	Paused    *bool `json:"paused"`
	AIEnabled *bool `json:"ai_enabled"`
}

// UpdateBot 只改请求里出现的开关
func (h *AdminHandler) UpdateBot(c *gin.Context) {
	var req botReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if req.Paused != nil {
		if err := h.BotState.SetPaused(ctx, *req.Paused); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.AIEnabled != nil {
		if err := h.BotState.SetAIEnabled(ctx, *req.AIEnabled); err != nil {
			respondError(c, err)
			return
		}
	}
	h.Status(c)
}

func (h *AdminHandler) GetIgnored(c *gin.Context) {
	ids, err := h.BotState.Ignored(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ids)
}

func (h *AdminHandler) Ignore(c *gin.Context) {
	if err := h.BotState.Ignore(c.Request.Context(), c.Param("identity")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) Unignore(c *gin.Context) {
	if err := h.BotState.Unignore(c.Request.Context(), c.Param("identity")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---- 订单与客户 ----

func (h *AdminHandler) ListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	orders, err := h.Orders.List(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *AdminHandler) GetOrder(c *gin.Context) {
	order, err := h.Orders.FindByCode(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *AdminHandler) GetCustomer(c *gin.Context) {
	customer, err := h.Customers.FindByIdentity(c.Param("identity"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

var exportHeaders = []string{"Pedido", "Fecha", "Cliente", "Línea", "Producto", "Cantidad", "Precio", "Subtotal línea", "Subtotal", "Descuento", "Envío", "Total", "Entrega"}

// ExportOrders 每个订单明细一行的 Excel
func (h *AdminHandler) ExportOrders(c *gin.Context) {
	orders, err := h.Orders.List(0)
	if err != nil {
		respondError(c, err)
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Pedidos")
	if err != nil {
		respondError(c, err)
		return
	}
	header := sheet.AddRow()
	for _, title := range exportHeaders {
		header.AddCell().SetValue(title)
	}
	for _, o := range orders {
		for _, it := range o.Items {
			row := sheet.AddRow()
			row.AddCell().SetValue(o.Code)
			row.AddCell().SetValue(o.CreatedAt.Format("2006-01-02 15:04:05"))
			row.AddCell().SetValue(o.Identity)
			row.AddCell().SetValue(it.Line)
			row.AddCell().SetValue(it.Name)
			row.AddCell().SetValue(it.Quantity)
			row.AddCell().SetValue(it.UnitPrice)
			row.AddCell().SetValue(it.Subtotal)
			row.AddCell().SetValue(o.Subtotal)
			row.AddCell().SetValue(o.Discount)
			row.AddCell().SetValue(o.DeliveryFee)
			row.AddCell().SetValue(o.Total)
			row.AddCell().SetValue(string(o.DeliveryType))
		}
	}

	name := fmt.Sprintf("pedidos_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		logrus.WithError(err).Error("❌ 导出 Excel 失败")
	}
}
