package scenario

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyRecipientName = errors.New("recipient name cannot be empty")
	ErrNoMessages         = errors.New("scenario must contain at least one message")
)

// DeviceFrame selects the phone frame the mockup is rendered in
type DeviceFrame string

const (
	DeviceFrameIPhone15Pro DeviceFrame = "iPhone15Pro"
	DeviceFrameNone        DeviceFrame = "none"
)

// ChatType selects the bubble styling of the mockup
type ChatType string

const (
	ChatTypeIMessage ChatType = "iMessage"
	ChatTypeSMS      ChatType = "SMS"
)

// MessageStatus is the delivery indicator shown under a sent message
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusNone      MessageStatus = "none"
)

// UISettings is pure display configuration for a scenario
type UISettings struct {
	RecipientName string      `json:"recipient_name" bson:"recipient_name"`
	DeviceFrame   DeviceFrame `json:"device_frame" bson:"device_frame"`
	ChatType      ChatType    `json:"chat_type" bson:"chat_type"`
	DarkTheme     bool        `json:"dark_theme" bson:"dark_theme"`
}

// Message is a single bubble in the mocked conversation
type Message struct {
	Text          string        `json:"text" bson:"text"`
	IsUserMessage bool          `json:"is_user_message" bson:"is_user_message"`
	Timestamp     string        `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
	Status        MessageStatus `json:"status" bson:"status"`
}

// EffectiveStatus returns the status as it must be rendered. A delivery
// indicator is only meaningful on the user's own messages.
func (m Message) EffectiveStatus() MessageStatus {
	if !m.IsUserMessage || m.Status == "" {
		return StatusNone
	}
	return m.Status
}

// Scenario is a saved chat-mockup composition owned by a single author.
// It is only ever mutated through the commit protocol.
type Scenario struct {
	ID             uuid.UUID  `json:"id" bson:"scenario_id"`
	AuthorID       uuid.UUID  `json:"author_id" bson:"author_id"`
	Title          string     `json:"title" bson:"title"`
	UISettings     UISettings `json:"ui_settings" bson:"ui_settings"`
	Messages       []Message  `json:"messages" bson:"messages"`
	PreviewImageID string     `json:"preview_image_id,omitempty" bson:"preview_image_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" bson:"updated_at"`
}

// New validates the input and builds a new scenario owned by authorID.
// Message statuses are normalized so non-user messages never carry one.
func New(authorID uuid.UUID, settings UISettings, messages []Message, previewImageID string) (*Scenario, error) {
	if authorID == uuid.Nil {
		return nil, errors.New("author id cannot be nil")
	}
	if err := validate(settings, messages); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Scenario{
		ID:             uuid.New(),
		AuthorID:       authorID,
		Title:          DeriveTitle(settings.RecipientName, now),
		UISettings:     settings,
		Messages:       normalizeMessages(messages),
		PreviewImageID: previewImageID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ApplyEdit replaces the scenario content in place, re-deriving the title
// from the (possibly changed) recipient name. Ownership is not checked here;
// that is the commit protocol's responsibility.
func (s *Scenario) ApplyEdit(settings UISettings, messages []Message, previewImageID string) error {
	if err := validate(settings, messages); err != nil {
		return err
	}

	now := time.Now()
	s.Title = DeriveTitle(settings.RecipientName, now)
	s.UISettings = settings
	s.Messages = normalizeMessages(messages)
	s.PreviewImageID = previewImageID
	s.UpdatedAt = now
	return nil
}

// DeriveTitle builds the display title from the recipient name and save date
func DeriveTitle(recipientName string, t time.Time) string {
	return recipientName + " Scenario " + t.Format("2006-01-02")
}

func validate(settings UISettings, messages []Message) error {
	if settings.RecipientName == "" {
		return ErrEmptyRecipientName
	}
	if len(messages) == 0 {
		return ErrNoMessages
	}
	return nil
}

// normalizeMessages copies the messages with each status replaced by its
// effective value, so persisted records never carry a meaningless status.
func normalizeMessages(messages []Message) []Message {
	normalized := make([]Message, len(messages))
	for i, m := range messages {
		m.Status = m.EffectiveStatus()
		normalized[i] = m
	}
	return normalized
}
