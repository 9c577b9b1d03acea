package knowledge

import "strings"

// ChunkText splits text into overlapping windows of whitespace-separated words.
// The window advances by max(1, size-overlap) words so it always makes progress.
func ChunkText(text string, size, overlap int) []string {
	if size < 1 {
		size = 1
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}
	if len(words) <= size {
		return []string{strings.TrimSpace(text)}
	}

	advance := size - overlap
	if advance < 1 {
		advance = 1
	}

	var chunks []string
	for start := 0; start < len(words); start += advance {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
