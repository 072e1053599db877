package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid")
	ErrInternal     = errors.New("internal")

	// Retrieval pipeline failures. The answer boundary folds these into
	// the error-state Answer; ingestion propagates them to the caller.
	ErrSegmentation = errors.New("segmentation failed")
	ErrEmbedding    = errors.New("embedding service failed")
	ErrIndex        = errors.New("vector index failed")
	ErrGeneration   = errors.New("generation failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsRetrievalFailure(err error) bool {
	return errors.Is(err, ErrEmbedding) || errors.Is(err, ErrIndex) || errors.Is(err, ErrGeneration)
}
