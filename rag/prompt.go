package rag

import (
	"fmt"
	"strings"
)

const promptHeader = `Answer the question as truthfully as possible using the provided context, ` +
	`and if the answer is not contained within the text below, say "I don't know."`

const sectionSeparator = "\n\n"

// SectionSource looks up section text by document id.
type SectionSource interface {
	Section(id DocumentID) (Section, bool)
}

// SelectContext walks ranked in order and collects sections until adding the
// next one would exceed maxTokens. The best section is always included when
// ranked is non-empty. maxTokens <= 0 disables the budget.
func SelectContext(src SectionSource, ranked []RankedResult, maxTokens int) ([]Section, error) {
	var (
		chosen []Section
		used   int
	)
	for _, r := range ranked {
		s, ok := src.Section(r.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSection, r.ID)
		}
		used += s.Tokens
		if maxTokens > 0 && used > maxTokens && len(chosen) > 0 {
			break
		}
		chosen = append(chosen, s)
	}
	return chosen, nil
}

// BuildPrompt renders the completion prompt for question with sections as
// context.
func BuildPrompt(question string, sections []Section) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nContext:\n")
	for i, s := range sections {
		if i > 0 {
			b.WriteString(sectionSeparator)
		}
		fmt.Fprintf(&b, "### %s %s\n%s", s.ID.Title, s.ID.Heading, strings.TrimSpace(s.Content))
	}
	fmt.Fprintf(&b, "\n\nQ: %s\nA:", strings.TrimSpace(question))
	return b.String()
}
