package http

import (
	"github.com/ApexGov/inspector/pkg/domain/regulation"
	"github.com/gofiber/fiber/v2"
)

type listRegulationsHandler struct {
	corpus *regulation.Corpus
}

func NewListRegulationsHandler(corpus *regulation.Corpus) Handler {
	return &listRegulationsHandler{corpus: corpus}
}

// Handle @Summary List citable regulations
// @Description Returns the regulation corpus used for citations
// @Tags Reference
// @Produce json
// @Param q query string false "Free text matched against entry keywords"
// @Success 200 {array} regulation.Entry
// @Router /api/v1/regulations [get]
func (h *listRegulationsHandler) Handle(c *fiber.Ctx) error {
	if q := c.Query("q"); q != "" {
		matches := h.corpus.Match(q)
		if matches == nil {
			matches = []regulation.Entry{}
		}
		return c.Status(fiber.StatusOK).JSON(matches)
	}
	return c.Status(fiber.StatusOK).JSON(h.corpus.All())
}
