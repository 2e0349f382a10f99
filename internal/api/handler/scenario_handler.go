package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/textmock/textmock-server/internal/api/middleware"
	"github.com/textmock/textmock-server/internal/domain/account"
	"github.com/textmock/textmock-server/internal/domain/identity"
	"github.com/textmock/textmock-server/internal/domain/scenario"
	"github.com/textmock/textmock-server/internal/domain/shared"
	"github.com/textmock/textmock-server/internal/service"
)

// ScenarioHandler handles HTTP requests for scenario operations
type ScenarioHandler struct {
	scenarioService service.ScenarioService
	logger          *slog.Logger
}

// NewScenarioHandler creates a new scenario handler
func NewScenarioHandler(logger *slog.Logger, scenarioService service.ScenarioService) *ScenarioHandler {
	return &ScenarioHandler{
		scenarioService: scenarioService,
		logger:          logger,
	}
}

// Create saves a new scenario and charges the save fee
func (h *ScenarioHandler) Create(c *gin.Context) {
	h.save(c, uuid.Nil)
}

// Update saves an edit of an existing scenario and charges the save fee
func (h *ScenarioHandler) Update(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid scenario ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid scenario ID")
		return
	}
	h.save(c, id)
}

func (h *ScenarioHandler) save(c *gin.Context, scenarioID uuid.UUID) {
	ident := middleware.GetIdentity(c)

	var req SaveScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.scenarioService.SaveScenario(c.Request.Context(), ident, service.SaveScenarioInput{
		ScenarioID:     scenarioID,
		UISettings:     mapUISettingsToDomain(req.UISettings),
		Messages:       mapMessagesToDomain(req.Messages),
		PreviewImageID: req.PreviewImageID,
	})
	if err != nil {
		h.respondSaveError(c, ident, scenarioID, err)
		return
	}

	response := SaveScenarioResponse{
		Scenario:   mapScenarioToResponse(result.Scenario),
		NewBalance: result.NewBalance,
		State:      string(result.State),
	}

	if scenarioID == uuid.Nil {
		RespondCreated(c, response)
		return
	}
	RespondOK(c, response)
}

func (h *ScenarioHandler) respondSaveError(c *gin.Context, ident identity.Identity, scenarioID uuid.UUID, err error) {
	var insufficientErr account.ErrInsufficientFunds
	switch {
	case errors.Is(err, identity.ErrUnauthorized):
		RespondUnauthorized(c, "")
	case errors.As(err, &insufficientErr):
		RespondInsufficientFunds(c, insufficientErr.Required, insufficientErr.Available)
	case errors.Is(err, scenario.ErrScenarioNotFound{}):
		RespondNotFound(c, "Scenario not found")
	case errors.Is(err, scenario.ErrEmptyRecipientName):
		RespondBadRequest(c, "Recipient name cannot be empty")
	case errors.Is(err, scenario.ErrNoMessages):
		RespondBadRequest(c, "Scenario must contain at least one message")
	case errors.Is(err, shared.ErrPartialCommit{}):
		h.logger.Error("Scenario save partially failed",
			"scenario_id", scenarioID.String(),
			"account_id", ident.AccountID.String(),
			"error", err,
		)
		RespondPartialCommit(c)
	default:
		h.logger.Error("Failed to save scenario",
			"scenario_id", scenarioID.String(),
			"account_id", ident.AccountID.String(),
			"error", err,
		)
		RespondInternalError(c)
	}
}

// List returns the caller's scenarios, most recently updated first
func (h *ScenarioHandler) List(c *gin.Context) {
	ident := middleware.GetIdentity(c)

	scenarios, err := h.scenarioService.ListScenarios(c.Request.Context(), ident)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			RespondUnauthorized(c, "")
			return
		}
		h.logger.Error("Failed to list scenarios", "account_id", ident.AccountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	summaries := make([]ScenarioSummaryResponse, 0, len(scenarios))
	for _, sc := range scenarios {
		summaries = append(summaries, ScenarioSummaryResponse{
			ID:             sc.ID.String(),
			Title:          sc.Title,
			RecipientName:  sc.UISettings.RecipientName,
			MessageCount:   len(sc.Messages),
			PreviewImageID: sc.PreviewImageID,
			UpdatedAt:      sc.UpdatedAt.Format(time.RFC3339),
		})
	}

	RespondOK(c, ScenarioListResponse{Scenarios: summaries})
}

// GetByID retrieves a scenario owned by the caller, returning 404 both when
// it does not exist and when it belongs to someone else
func (h *ScenarioHandler) GetByID(c *gin.Context) {
	ident := middleware.GetIdentity(c)

	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid scenario ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid scenario ID")
		return
	}

	sc, err := h.scenarioService.GetScenario(c.Request.Context(), id, ident)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			RespondUnauthorized(c, "")
			return
		}
		h.logger.Error("Failed to get scenario", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}
	if sc == nil {
		RespondNotFound(c, "Scenario not found")
		return
	}

	RespondOK(c, mapScenarioToResponse(sc))
}

func mapUISettingsToDomain(p UISettingsPayload) scenario.UISettings {
	settings := scenario.UISettings{
		RecipientName: p.RecipientName,
		DeviceFrame:   scenario.DeviceFrame(p.DeviceFrame),
		ChatType:      scenario.ChatType(p.ChatType),
		DarkTheme:     p.DarkTheme,
	}
	if settings.DeviceFrame == "" {
		settings.DeviceFrame = scenario.DeviceFrameIPhone15Pro
	}
	if settings.ChatType == "" {
		settings.ChatType = scenario.ChatTypeIMessage
	}
	return settings
}

func mapMessagesToDomain(payloads []MessagePayload) []scenario.Message {
	messages := make([]scenario.Message, len(payloads))
	for i, p := range payloads {
		messages[i] = scenario.Message{
			Text:          p.Text,
			IsUserMessage: p.IsUserMessage,
			Timestamp:     p.Timestamp,
			Status:        scenario.MessageStatus(p.Status),
		}
	}
	return messages
}

// mapScenarioToResponse maps a scenario entity to a response DTO
func mapScenarioToResponse(sc *scenario.Scenario) ScenarioResponse {
	messages := make([]MessagePayload, len(sc.Messages))
	for i, m := range sc.Messages {
		messages[i] = MessagePayload{
			Text:          m.Text,
			IsUserMessage: m.IsUserMessage,
			Timestamp:     m.Timestamp,
			Status:        string(m.Status),
		}
	}

	return ScenarioResponse{
		ID:    sc.ID.String(),
		Title: sc.Title,
		UISettings: UISettingsPayload{
			RecipientName: sc.UISettings.RecipientName,
			DeviceFrame:   string(sc.UISettings.DeviceFrame),
			ChatType:      string(sc.UISettings.ChatType),
			DarkTheme:     sc.UISettings.DarkTheme,
		},
		Messages:       messages,
		PreviewImageID: sc.PreviewImageID,
		CreatedAt:      sc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      sc.UpdatedAt.Format(time.RFC3339),
	}
}
