package models

// InboundMessage 传输网关转发过来的一条客户消息
type InboundMessage struct {
	CustomerID string `json:"customer_id" binding:"required"`
	Text       string `json:"text"`
}

// Reply 回给客户的内容；Silent 表示这条消息不需要回复
type Reply struct {
	Text     string `json:"text,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Intent   Intent `json:"intent"`
	Silent   bool   `json:"-"`
}

// Intent 命中的意图，用于日志和测试
type Intent string

const (
	IntentOwnerCommand   Intent = "owner_command"
	IntentDisambiguation Intent = "disambiguation_reply"
	IntentConfirmItem    Intent = "item_confirmation"
	IntentCartView       Intent = "cart_view"
	IntentCartConfirm    Intent = "cart_confirm"
	IntentCartCancel     Intent = "cart_cancel"
	IntentCartRemove     Intent = "cart_remove"
	IntentDeliveryChoice Intent = "delivery_choice"
	IntentPhoto          Intent = "photo_request"
	IntentCatalog        Intent = "catalog_request"
	IntentCategory       Intent = "category_browse"
	IntentGreeting       Intent = "greeting"
	IntentFAQ            Intent = "faq"
	IntentProduct        Intent = "product_phrase"
	IntentFallback       Intent = "ai_fallback"
	IntentIgnored        Intent = "ignored"
	IntentFailure        Intent = "failure"
)
