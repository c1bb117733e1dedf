package rag

import (
	"context"
	"errors"
	"fmt"

	"document-chatbot/internal/models"
)

// UserMessage turns an error from Ingest or Ask into text for the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var msg string
	switch {
	case errors.Is(err, models.ErrEmptyQuestion):
		return "Please enter a question."
	case errors.Is(err, models.ErrIndexNotFound):
		return "No processed documents found. Upload PDF files and process them before asking a question."
	case errors.Is(err, models.ErrAuthentication):
		msg = "The API key was rejected or is missing. Check the key and try again."
	case errors.Is(err, models.ErrTransient):
		msg = "The model service is temporarily unavailable. Please try again in a moment."
	case errors.Is(err, context.Canceled):
		msg = "The operation was cancelled."
	case errors.Is(err, models.ErrExtraction):
		msg = "No text could be extracted from the uploaded PDF files."
	case errors.Is(err, models.ErrEmbedding):
		msg = "The embedding service could not process the text."
	case errors.Is(err, models.ErrModelInvocation):
		msg = "The model returned an error or an unusable response. Please try again."
	default:
		msg = fmt.Sprintf("Something went wrong: %v", err)
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		msg = fmt.Sprintf("%s (while %s)", msg, stageErr.Stage)
	}
	return msg
}
