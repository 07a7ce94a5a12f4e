package controller

import (
	"chat-analytics-service/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type AnalyticsController interface {
	GetChat(c *fiber.Ctx) error
	GetDocuments(c *fiber.Ctx) error
	GetLinks(c *fiber.Ctx) error
	GetUsage(c *fiber.Ctx) error
	GetEnhanced(c *fiber.Ctx) error
}

// analyticsController serves point-in-time views of the metric store.
type analyticsController struct {
	reader service.AnalyticsReader
}

// NewAnalyticsController builds an AnalyticsController.
func NewAnalyticsController(reader service.AnalyticsReader) AnalyticsController {
	return &analyticsController{reader: reader}
}

// GetChat returns one scope's chat stats when chat_id is set, the rollup
// otherwise.
func (h *analyticsController) GetChat(c *fiber.Ctx) error {
	if scope := chatID(c); scope != "" {
		return c.JSON(h.reader.ChatStatistics(scope))
	}
	return c.JSON(h.reader.ChatRollup())
}

func (h *analyticsController) GetDocuments(c *fiber.Ctx) error {
	if scope := chatID(c); scope != "" {
		return c.JSON(h.reader.DocumentStatistics(scope))
	}
	return c.JSON(h.reader.DocumentRollup())
}

func (h *analyticsController) GetLinks(c *fiber.Ctx) error {
	if scope := chatID(c); scope != "" {
		return c.JSON(h.reader.LinkStatistics(scope))
	}
	return c.JSON(h.reader.LinkRollup())
}

func (h *analyticsController) GetUsage(c *fiber.Ctx) error {
	return c.JSON(h.reader.UsageStatistics())
}

func (h *analyticsController) GetEnhanced(c *fiber.Ctx) error {
	return c.JSON(h.reader.EnhancedStatistics())
}

func chatID(c *fiber.Ctx) string {
	return utils.Trim(c.Query("chat_id"), ' ')
}
