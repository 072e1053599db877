package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/compbot/internal/pkg/errcode"
	apperr "github.com/xxxsen/compbot/internal/pkg/errors"
	"github.com/xxxsen/compbot/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, apperr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, apperr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, apperr.ErrEmbedding):
		response.Error(c, errcode.ErrEmbeddingFailed, "embedding failed")
	case errors.Is(err, apperr.ErrIndex):
		response.Error(c, errcode.ErrIndexFailed, "index operation failed")
	case errors.Is(err, apperr.ErrSegmentation):
		response.Error(c, errcode.ErrIngestFailed, "ingest failed")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
