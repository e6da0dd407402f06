package service

import "strings"

// Length policy for summarization input, measured on the extracted plain
// text. The minimum filters trivial notes (waived when attachments exist);
// the maximum keeps the prompt inside the model's practical context window.
const (
	minSummaryInputChars = 50
	maxSummaryInputChars = 30000
)

// buildSummaryPrompt is a pure function: same inputs, same prompt. The
// attachments section is omitted entirely when there is nothing extracted.
func buildSummaryPrompt(title, plainText, attachmentsText string) string {
	var b strings.Builder
	b.WriteString("You are a professional note-taking assistant. I need a concise summary of the following note.\n\n")
	b.WriteString("TITLE: ")
	b.WriteString(title)
	b.WriteString("\nCONTENT: ")
	b.WriteString(plainText)
	b.WriteString("\n")
	if attachmentsText != "" {
		b.WriteString("ATTACHED DOCUMENT CONTENT: ")
		b.WriteString(attachmentsText)
		b.WriteString("\n")
	}
	b.WriteString(`
INSTRUCTIONS:
- Provide a summary in 3-5 bullet points.
- Pull out any key actions or deadlines if they exist.
- If there are attached documents, integrate their key information into the summary.
- Use professional and clear language.
- Formatting: Use Markdown bullet points.
`)
	return b.String()
}
