package models

// HTTP request bodies and query strings.

type ListActionsRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=pending applied rejected"`
}

type ActionRequest struct {
	ID string `param:"id" validate:"required"`
}

type LinkAccountRequest struct {
	PublicToken string `json:"public_token" validate:"required"`
}

type PredictCategoryRequest struct {
	Description string `json:"description" validate:"required,max=512"`
}

type ForecastRequest struct {
	Steps int `query:"steps" default:"30" validate:"gte=1,lte=365"`
}

type WebhookRequest struct {
	WebhookType string `json:"webhook_type" validate:"required"`
	WebhookCode string `json:"webhook_code" validate:"required"`
	ItemID      string `json:"item_id" validate:"required"`
}
