package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/compbot/internal/pkg/response"
	"github.com/xxxsen/compbot/internal/schedule"
	"github.com/xxxsen/compbot/internal/service"
)

type StatsHandler struct {
	index     *service.IndexService
	scheduler schedule.Scheduler
}

func NewStatsHandler(index *service.IndexService, scheduler schedule.Scheduler) *StatsHandler {
	return &StatsHandler{index: index, scheduler: scheduler}
}

func (h *StatsHandler) Stats(c *gin.Context) {
	stats, err := h.index.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *StatsHandler) Scheduler(c *gin.Context) {
	response.Success(c, gin.H{"jobs": h.scheduler.Status()})
}
