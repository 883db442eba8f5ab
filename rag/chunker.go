package rag

import (
	"strconv"
	"strings"
)

// ChunkText splits text into sections of at most three sentences. Sections
// are titled title and headed "part N".
func ChunkText(text, title string) []Section {
	sentences := strings.Split(text, ".")
	const maxSentencesPerChunk = 3

	var sections []Section
	var buffer []string

	maybeFlush := func() {
		if len(buffer) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(buffer, ". ") + ".")
		buffer = buffer[:0]
		if content == "." {
			return
		}
		sections = append(sections, Section{
			ID:      DocumentID{Title: title, Heading: "part " + strconv.Itoa(len(sections)+1)},
			Content: content,
			Tokens:  EstimateTokens(content),
		})
	}

	for _, s := range sentences {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			continue
		}
		buffer = append(buffer, s)
		if len(buffer) >= maxSentencesPerChunk {
			maybeFlush()
		}
	}
	maybeFlush()

	return sections
}
