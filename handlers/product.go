package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatorder-backend/catalog"
	"chatorder-backend/repositories"
	"chatorder-backend/services"
)

type ProductHandler struct {
	Index *catalog.Index
	Repo  repositories.ProductRepository
	Sync  *services.CatalogSync
}

func NewProductHandler(index *catalog.Index, repo repositories.ProductRepository, sync *services.CatalogSync) *ProductHandler {
	return &ProductHandler{Index: index, Repo: repo, Sync: sync}
}

// GetProducts 当前索引里的商品，可按分类或关键词过滤
func (h *ProductHandler) GetProducts(c *gin.Context) {
	if q := c.Query("q"); q != "" {
		matches := h.Index.Search(q)
		c.JSON(http.StatusOK, matches)
		return
	}
	if cat := c.Query("category"); cat != "" {
		if products := h.Index.ByCategory(cat); len(products) > 0 {
			c.JSON(http.StatusOK, products)
			return
		}
		c.JSON(http.StatusOK, h.Index.BySubcategory(cat))
		return
	}
	c.JSON(http.StatusOK, h.Index.Products())
}

func (h *ProductHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, h.Index.Categories())
}

func (h *ProductHandler) GetByBarcode(c *gin.Context) {
	p, err := h.Index.LookupByBarcode(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type stockReq struct {
	InStock *bool `json:"in_stock" binding:"required"`
}

// SetStock 改库存后立刻重建索引，下一条消息就能看到
func (h *ProductHandler) SetStock(c *gin.Context) {
	var req stockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "falta in_stock"})
		return
	}
	if err := h.Repo.SetStock(c.Param("id"), *req.InStock); err != nil {
		respondError(c, err)
		return
	}
	res, err := h.Sync.Reload()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "in_stock": *req.InStock, "catalog": res})
}

// ReloadCatalog 从仓库重建索引
func (h *ProductHandler) ReloadCatalog(c *gin.Context) {
	if c.Query("async") == strconv.FormatBool(true) {
		h.Sync.Trigger()
		c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
		return
	}
	res, err := h.Sync.Reload()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ImportCatalog 请求体是 YAML 目录，整体替换
func (h *ProductHandler) ImportCatalog(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "catálogo vacío"})
		return
	}
	res, err := h.Sync.Import(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
