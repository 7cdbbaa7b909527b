package generator

import (
	"fmt"
	"strings"
)

// SystemPrompt conditions the teacher model to emit strict JSON.
const SystemPrompt = "You are a helpful data generation assistant. Output valid JSON only."

// generationPromptTemplate asks the teacher model to turn one sanitized
// chunk into an instruction/response pair. %s receives the chunk text.
const generationPromptTemplate = `Analyze the following raw technical log or documentation:
"%s"

Task: Act as a Senior DevSecOps Engineer. Generate a realistic Instruction/Response pair based on this text.
The 'Instruction' should be a question a junior engineer might ask.
The 'Response' should be the technical answer derived strictly from the text.

Output format (JSON only):
{
  "instruction": "...",
  "response": "..."
}`

// BuildPrompt renders the teacher-generation prompt for one chunk.
func BuildPrompt(chunkText string) string {
	// Literal quotes in the chunk would prematurely close the quoted block
	// in the template, so escape them.
	escaped := strings.ReplaceAll(chunkText, `"`, `\"`)
	return fmt.Sprintf(generationPromptTemplate, escaped)
}
