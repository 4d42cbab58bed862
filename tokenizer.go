package main

import (
	"fmt"
	"log/slog"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens in the content of a matched file.
type Tokenizer interface {
	CountTokens(text string) int
}

// --- Tiktoken Wrapper ---

type TiktokenWrapper struct {
	ttk *tiktoken.Tiktoken
}

func (w *TiktokenWrapper) CountTokens(text string) int {
	if w.ttk == nil {
		return 0
	}
	return len(w.ttk.EncodeOrdinary(text))
}

const defaultTiktokenModel = "gpt-4o"

// loadTiktoken returns the encoding for model, falling back to the default
// model when the name is unknown.
func loadTiktoken(model string, logger *slog.Logger) (Tokenizer, error) {
	if model == "" {
		model = defaultTiktokenModel
	}

	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn("tiktoken model not found, falling back", "model", model, "fallback", defaultTiktokenModel, "error", err)
		tke, err = tiktoken.EncodingForModel(defaultTiktokenModel)
		if err != nil {
			return nil, fmt.Errorf("failed to get tiktoken encoding for default model '%s': %w", defaultTiktokenModel, err)
		}
	}
	logger.Debug("tokenizer ready", "model", model)
	return &TiktokenWrapper{ttk: tke}, nil
}
