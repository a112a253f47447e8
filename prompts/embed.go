// Package prompts embeds the fixed texts shown to users.
package prompts

import (
	_ "embed"
	"strings"
)

//go:embed welcome.md
var welcome string

//go:embed about.md
var about string

// Welcome is shown in an empty chat.
var Welcome = strings.TrimSpace(welcome)

// About is the long description of the medsplain command.
var About = strings.TrimSpace(about)
