package tracker

import (
	"errors"
	"strconv"

	"reward-tracker/core/logger"
	"reward-tracker/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for tracked cards.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the tracker routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/cards")
	group.Get("/", h.HandleListCards)
	group.Get("/:id/versions", h.HandleListVersions)
	group.Get("/:id/history", h.HandleCrawlHistory)
	group.Post("/:id/reconcile", h.HandleReconcile)
}

func cardIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid card id")
	}
	return uint(id), nil
}

// HandleListCards returns all tracked cards.
// @Summary List Cards
// @Description List all tracked cards.
// @Tags cards
// @Produce json
// @Success 200 {array} models.Card "Cards"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /cards [get]
func (h *Handler) HandleListCards(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	cards, err := h.service.store.Cards(c.Context())
	if err != nil {
		l.Error("Failed to list cards", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(cards)
}

// HandleListVersions returns a card's versions, newest first.
// @Summary List Card Versions
// @Description List the recorded reward-term versions for a card.
// @Tags cards
// @Produce json
// @Param id path int true "Card ID"
// @Success 200 {array} models.CardVersion "Versions"
// @Failure 400 {object} map[string]string "Invalid Card ID"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /cards/{id}/versions [get]
func (h *Handler) HandleListVersions(c *fiber.Ctx) error {
	id, err := cardIDParam(c)
	if err != nil {
		return err
	}
	l := logger.WithRayID(h.service.logger, c)

	versions, err := h.service.store.Versions(c.Context(), id)
	if err != nil {
		l.Error("Failed to list versions", zap.Uint("card_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(versions)
}

// HandleCrawlHistory returns a card's crawl audit log, newest first.
// @Summary Crawl History
// @Description List the audit outcomes of past reconciliation runs for a card.
// @Tags cards
// @Produce json
// @Param id path int true "Card ID"
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {array} models.CrawlLog "Crawl log entries"
// @Failure 400 {object} map[string]string "Invalid Card ID"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /cards/{id}/history [get]
func (h *Handler) HandleCrawlHistory(c *fiber.Ctx) error {
	id, err := cardIDParam(c)
	if err != nil {
		return err
	}
	l := logger.WithRayID(h.service.logger, c)

	limit := c.QueryInt("limit", 50)
	logs, err := h.service.store.History(c.Context(), id, limit)
	if err != nil {
		l.Error("Failed to load crawl history", zap.Uint("card_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(logs)
}

// HandleReconcile triggers one reconciliation run for a card.
// @Summary Reconcile Card
// @Description Run fetch, change detection, extraction, and commit for one card.
// @Tags cards
// @Produce json
// @Param id path int true "Card ID"
// @Success 200 {object} reconcile.Outcome "Run outcome"
// @Failure 400 {object} map[string]string "Invalid Card ID"
// @Failure 404 {object} map[string]string "Card Not Found"
// @Failure 409 {object} map[string]string "Commit Conflict"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /cards/{id}/reconcile [post]
func (h *Handler) HandleReconcile(c *fiber.Ctx) error {
	id, err := cardIDParam(c)
	if err != nil {
		return err
	}
	l := logger.WithRayID(h.service.logger, c)

	outcome, err := h.service.ReconcileCard(c.Context(), id)
	switch {
	case errors.Is(err, ErrCardNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, reconcile.ErrCommitConflict):
		// A concurrent run committed first; the caller may retry.
		l.Warn("Reconcile conflict", zap.Uint("card_id", id))
		return c.Status(fiber.StatusConflict).JSON(outcome)
	case err != nil:
		l.Error("Reconcile failed", zap.Uint("card_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(outcome)
}
