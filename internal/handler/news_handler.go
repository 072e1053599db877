package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/compbot/internal/pkg/errcode"
	"github.com/xxxsen/compbot/internal/pkg/response"
	"github.com/xxxsen/compbot/internal/service"
)

type NewsHandler struct {
	news *service.NewsService
}

func NewNewsHandler(news *service.NewsService) *NewsHandler {
	return &NewsHandler{news: news}
}

// Run triggers a digest cycle outside the cron schedule.
func (h *NewsHandler) Run(c *gin.Context) {
	digest, err := h.news.Run(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.Error(c, errcode.ErrNewsFailed, "news digest failed")
		return
	}
	response.Success(c, digest)
}
