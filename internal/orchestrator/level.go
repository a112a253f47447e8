package orchestrator

import (
	"fmt"
	"strings"
)

// Level is the reader's comprehension level sent with assistant prompts.
type Level string

const (
	LevelBasic        Level = "Basic"
	LevelIntermediate Level = "Intermediate"
	LevelExpert       Level = "Expert"
)

// Levels lists every level from simplest to most technical.
var Levels = []Level{LevelBasic, LevelIntermediate, LevelExpert}

// ParseLevel matches s case-insensitively against the known levels.
func ParseLevel(s string) (Level, error) {
	for _, l := range Levels {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown level %q (want Basic, Intermediate or Expert)", s)
}

// Next returns the following level, wrapping around.
func (l Level) Next() Level {
	for i, lv := range Levels {
		if lv == l {
			return Levels[(i+1)%len(Levels)]
		}
	}
	return LevelIntermediate
}

// AugmentPrompt prefixes prompt with the level tag the backend expects.
func AugmentPrompt(level Level, prompt string) string {
	return fmt.Sprintf("[level:%s] %s", level, prompt)
}
