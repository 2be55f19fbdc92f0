// Package web provides HTTP handlers and REST API endpoints for bot and
// flow management.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/chalique/botflow/pkg/conversation"
	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/persistence"
	"github.com/chalique/botflow/pkg/services"
)

type APIHandlers struct {
	flowService *services.Flow
	botService  *services.Bot
	driver      *conversation.Driver
	validator   *validator.Validate
}

func NewAPIHandlers(
	flowService *services.Flow,
	botService *services.Bot,
	driver *conversation.Driver,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		flowService: flowService,
		botService:  botService,
		driver:      driver,
		validator:   validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.flowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Botflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Botflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetBots(c fiber.Ctx) error {
	bots, err := h.botService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(bots)
}

func (h *APIHandlers) GetBot(c fiber.Ctx) error {
	id := c.Params("botId")
	if id == "" {
		return badRequest(c, "Bot ID is required")
	}

	bot, err := h.botService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsBotNotFound(err) {
			return notFound(c, "Bot not found")
		}

		return internalError(c, err)
	}

	return c.JSON(bot)
}

func (h *APIHandlers) CreateBot(c fiber.Ctx) error {
	var req CreateBotRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.botService.Create(c.Context(), req.Bot())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateBot(c fiber.Ctx) error {
	id := c.Params("botId")
	if id == "" {
		return badRequest(c, "Bot ID is required")
	}

	var update models.BotUpdate
	if err := c.Bind().JSON(&update); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.botService.Patch(c.Context(), id, update)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteBot(c fiber.Ctx) error {
	id := c.Params("botId")
	if id == "" {
		return badRequest(c, "Bot ID is required")
	}

	if err := h.botService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	botID := c.Params("botId")
	if botID == "" {
		return badRequest(c, "Bot ID is required")
	}

	flows, err := h.flowService.ListByBot(c.Context(), botID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(flows)
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	id := c.Params("flowId")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.flowService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsFlowNotFound(err) {
			return notFound(c, "Flow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	botID := c.Params("botId")
	if botID == "" {
		return badRequest(c, "Bot ID is required")
	}

	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.flowService.Create(c.Context(), botID, req.Flow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	id := c.Params("flowId")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req UpdateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.flowService.Update(c.Context(), id, req.Flow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) PatchFlow(c fiber.Ctx) error {
	id := c.Params("flowId")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var update models.FlowUpdate
	if err := c.Bind().JSON(&update); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	patched, err := h.flowService.Patch(c.Context(), id, update)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(patched)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("flowId")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	if err := h.flowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) SetDefaultFlow(c fiber.Ctx) error {
	botID := c.Params("botId")
	flowID := c.Params("flowId")

	if botID == "" || flowID == "" {
		return badRequest(c, "Bot ID and flow ID are required")
	}

	if err := h.flowService.SetDefault(c.Context(), botID, flowID); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"default": flowID})
}

// TelegramWebhook receives a platform update and runs one conversation
// turn. It always answers 200 with the webhook reply; turn failures are
// reported to the user inside the reply, never as an HTTP error.
func (h *APIHandlers) TelegramWebhook(c fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return badRequest(c, "Bot token is required")
	}

	var update conversation.Update
	if err := c.Bind().JSON(&update); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	return c.JSON(h.driver.HandleUpdate(c.Context(), token, update))
}
