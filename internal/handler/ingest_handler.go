package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/compbot/internal/model"
	"github.com/xxxsen/compbot/internal/pkg/errcode"
	"github.com/xxxsen/compbot/internal/pkg/response"
	"github.com/xxxsen/compbot/internal/service"
)

type IngestHandler struct {
	ingest *service.IngestService
	index  *service.IndexService
}

func NewIngestHandler(ingest *service.IngestService, index *service.IndexService) *IngestHandler {
	return &IngestHandler{ingest: ingest, index: index}
}

type ingestRequest struct {
	Documents []struct {
		Name string `json:"name"`
		Text string `json:"text"`
	} `json:"documents"`
}

func (h *IngestHandler) Upload(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	docs := make([]model.Document, 0, len(req.Documents))
	for _, doc := range req.Documents {
		docs = append(docs, model.Document{Name: doc.Name, Text: doc.Text})
	}
	if err := h.ingest.Upload(c.Request.Context(), docs); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"documents": len(docs)})
}

func (h *IngestHandler) Reload(c *gin.Context) {
	count, err := h.ingest.Reload(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"documents": count})
}

func (h *IngestHandler) Delete(c *gin.Context) {
	name := c.Param("name")
	deleted, err := h.ingest.Delete(c.Request.Context(), name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"name": name, "deleted_chunks": deleted})
}

func (h *IngestHandler) Clear(c *gin.Context) {
	if err := h.index.Clear(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"cleared": true})
}
