package ai

import (
	_ "embed"
)

//go:embed prompts/extract_attributes.md
var extractAttributesInstruction string

// ExtractAttributesInstruction is the instruction turn sent ahead of every
// description.
func ExtractAttributesInstruction() string {
	return extractAttributesInstruction
}
