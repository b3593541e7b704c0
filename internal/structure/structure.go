// Package structure turns a language model's free-text reply into document
// data. The model is untrusted: any reply that is not valid JSON of the
// expected shape degrades silently to a single-text fallback, so structuring
// can never fail an ingestion.
package structure

import (
	"encoding/json"
	"fmt"
	"strings"

	"articlerag/features/document"
)

// Prompt builds the structuring instruction for one extracted article.
func Prompt(url, content string) string {
	var b strings.Builder
	b.WriteString("You are to analyze the following article and output a JSON object ")
	b.WriteString("with a \"title\" key and a \"sections\" key. The sections key must be ")
	b.WriteString("an object mapping a short section name to an object with a \"text\" key ")
	b.WriteString("holding that section's content.\n\n")
	fmt.Fprintf(&b, "Article URL: %s\n", url)
	fmt.Fprintf(&b, "Article content:\n\"\"\"%s\"\"\"\n\n", content)
	b.WriteString("Output only the JSON.")
	return b.String()
}

// Parse decides between the structured and fallback representations. The
// completion must be valid JSON with at least one section carrying non-empty
// text; anything else yields the fallback carrying the full extracted text.
func Parse(completion, extracted string) document.Data {
	var data document.Data
	if err := json.Unmarshal([]byte(stripFences(completion)), &data); err != nil {
		return fallback(extracted)
	}

	usable := false
	for _, sec := range data.Sections {
		if strings.TrimSpace(sec.Text) != "" {
			usable = true
			break
		}
	}
	if !usable {
		return fallback(extracted)
	}

	// The fallback text field and sections are mutually exclusive.
	data.Text = ""
	return data
}

func fallback(extracted string) document.Data {
	return document.Data{Text: extracted}
}

// stripFences unwraps ```json ... ``` style code fences that models often
// wrap their replies in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
