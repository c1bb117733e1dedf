package rag

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Stage names a step of the ingest or answer flow
type Stage string

const (
	StageExtracting     Stage = "extracting"
	StageChunking       Stage = "chunking"
	StageEmbedding      Stage = "embedding"
	StageIndexing       Stage = "indexing"
	StageLoading        Stage = "loading"
	StageEmbeddingQuery Stage = "embedding-query"
	StageRetrieving     Stage = "retrieving"
	StageGenerating     Stage = "generating"
)

// StageError records the step at which a flow was aborted
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// recoverStage turns a panic in a flow into a StageError. It must be deferred
// directly.
func recoverStage(stage *Stage, err *error) {
	if r := recover(); r != nil {
		log.Error().Str("stage", string(*stage)).Interface("panic", r).Msg("Recovered from panic")
		*err = &StageError{Stage: *stage, Err: fmt.Errorf("unexpected failure: %v", r)}
	}
}
