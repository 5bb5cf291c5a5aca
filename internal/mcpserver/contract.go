package mcpserver

import "github.com/starford/clipmaster/internal/prompt"

// PromptFormatContract describes how prompt templates are written so that
// LLM consumers can add or pick prompts that render correctly.
const PromptFormatContract = `# Clipmaster Prompt Template Format

A prompt template is plain text sent to the local model after the clipboard
text has been substituted into it.

## Rules

1. A template MUST contain the placeholder ` + "`" + prompt.Placeholder + "`" + ` at least once.
2. Every occurrence of the placeholder is replaced with the clipboard text, verbatim.
3. Templates must not be empty or whitespace only.
4. Duplicate templates are allowed. Deleting a template removes every copy.
5. Exactly one template is active at a time. Hotkeys select the first three
   templates by position.
6. Only text clips are transformed. Image clips are skipped.
7. The model's answer is trimmed and any ` + "`" + `<think>...</think>` + "`" + ` sections are
   removed before it is written back to the clipboard.

## Example

` + "```" + `text
Translate to French. Reply with the translation only:

` + prompt.Placeholder + `
` + "```" + `
`
