package handler

// UISettingsPayload carries the display configuration of a scenario
type UISettingsPayload struct {
	RecipientName string `json:"recipient_name" binding:"required"`
	DeviceFrame   string `json:"device_frame" binding:"omitempty,oneof=iPhone15Pro none"`
	ChatType      string `json:"chat_type" binding:"omitempty,oneof=iMessage SMS"`
	DarkTheme     bool   `json:"dark_theme"`
}

// MessagePayload carries a single chat bubble
type MessagePayload struct {
	Text          string `json:"text"`
	IsUserMessage bool   `json:"is_user_message"`
	Timestamp     string `json:"timestamp,omitempty"`
	Status        string `json:"status" binding:"omitempty,oneof=sent delivered read none"`
}

// SaveScenarioRequest represents a request to create or edit a scenario
type SaveScenarioRequest struct {
	UISettings     UISettingsPayload `json:"ui_settings" binding:"required"`
	Messages       []MessagePayload  `json:"messages" binding:"required,min=1"`
	PreviewImageID string            `json:"preview_image_id,omitempty"`
}

// ScenarioResponse represents a scenario in API responses
type ScenarioResponse struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	UISettings     UISettingsPayload `json:"ui_settings"`
	Messages       []MessagePayload  `json:"messages"`
	PreviewImageID string            `json:"preview_image_id,omitempty"`
	CreatedAt      string            `json:"created_at"`
	UpdatedAt      string            `json:"updated_at"`
}

// SaveScenarioResponse reports a committed save together with the balance
// after the fee was charged
type SaveScenarioResponse struct {
	Scenario   ScenarioResponse `json:"scenario"`
	NewBalance int64            `json:"new_balance"`
	State      string           `json:"state"`
}

// ScenarioSummaryResponse represents a scenario in list responses, without
// the message payload
type ScenarioSummaryResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	RecipientName  string `json:"recipient_name"`
	MessageCount   int    `json:"message_count"`
	PreviewImageID string `json:"preview_image_id,omitempty"`
	UpdatedAt      string `json:"updated_at"`
}

// ScenarioListResponse represents the caller's scenarios
type ScenarioListResponse struct {
	Scenarios []ScenarioSummaryResponse `json:"scenarios"`
}

// BalanceResponse represents the caller's token balance
type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// BuyTokensRequest represents a simulated token purchase
type BuyTokensRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// BuyTokensResponse reports the balance after a purchase
type BuyTokensResponse struct {
	NewBalance int64 `json:"new_balance"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	EntryID     string `json:"entry_id"`
	Kind        string `json:"kind"`
	Amount      int64  `json:"amount"`
	ReferenceID string `json:"reference_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// AuditResponse reports a balance check against the audit log
type AuditResponse struct {
	AccountID  string `json:"account_id"`
	Balance    int64  `json:"balance"`
	EntrySum   int64  `json:"entry_sum"`
	Consistent bool   `json:"consistent"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
