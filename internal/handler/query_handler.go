package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/compbot/internal/pkg/errcode"
	"github.com/xxxsen/compbot/internal/pkg/response"
	"github.com/xxxsen/compbot/internal/service"
)

type QueryHandler struct {
	answerer *service.AnswerService
}

func NewQueryHandler(answerer *service.AnswerService) *QueryHandler {
	return &QueryHandler{answerer: answerer}
}

type queryRequest struct {
	Question string `json:"question"`
}

// Query answers a compliance question. The pipeline folds its own failures
// into the answer body, so this endpoint always returns a well-formed
// answer payload.
func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		response.Error(c, errcode.ErrInvalid, "question is required")
		return
	}
	answer := h.answerer.Answer(c.Request.Context(), req.Question)
	response.Success(c, answer)
}
