package tts

import "unicode/utf8"

// SplitFixed splits text into consecutive pieces of at most size
// characters. The last piece may be shorter. Empty text yields no pieces;
// a non-positive size yields the text as a single piece.
func SplitFixed(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}

	n := utf8.RuneCountInString(text)
	chunks := make([]string, 0, (n+size-1)/size)

	start, count := 0, 0
	for i := range text {
		if count == size {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(chunks, text[start:])
}
