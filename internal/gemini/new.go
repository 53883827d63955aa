package gemini

import (
	"strings"
	"time"

	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
)

const DefaultModel = "gemini-2.5-flash"

type implAnalyzer struct {
	apiKeys      []string
	currentKey   int
	model        string
	pollInterval time.Duration
	logger       logger.Logger
}

// New creates an Analyzer that rotates through the supplied Gemini API keys.
func New(apiKeys []string, model string, log logger.Logger) Analyzer {
	if model == "" {
		model = DefaultModel
	}
	return &implAnalyzer{
		apiKeys:      apiKeys,
		model:        model,
		pollInterval: 2 * time.Second,
		logger:       log,
	}
}

// SplitKeys parses a comma separated key list, dropping blanks.
func SplitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
