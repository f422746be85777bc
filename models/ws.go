package models

// WSMessage 推给管理 App 的事件
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	EventOrderCreated   = "ORDER_CREATED"
	EventCatalogUpdated = "CATALOG_UPDATED"
	EventBotState       = "BOT_STATE"
)
