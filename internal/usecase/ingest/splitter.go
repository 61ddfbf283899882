package ingest

import "strings"

// defaultSeparators are tried in order: paragraph, line, word, character.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter breaks text into overlapping chunks, preferring to cut on the
// coarsest separator that still keeps pieces under the chunk size.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewSplitter creates a splitter. Overlap must be smaller than the chunk
// size (enforced by config validation).
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

// Split returns the chunks of text, each at most chunkSize characters,
// with neighboring chunks sharing up to chunkOverlap characters.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var remaining []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			remaining = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = strings.Split(text, "")
	} else {
		pieces = strings.Split(text, sep)
	}

	var chunks []string
	var small []string
	for _, piece := range pieces {
		if len(piece) < s.chunkSize {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			chunks = append(chunks, s.merge(small, sep)...)
			small = nil
		}
		// Oversized piece: recurse on finer separators.
		if len(remaining) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, remaining)...)
		}
	}
	if len(small) > 0 {
		chunks = append(chunks, s.merge(small, sep)...)
	}
	return chunks
}

// merge greedily joins pieces up to chunkSize, then slides the window
// forward keeping chunkOverlap characters of trailing context.
func (s *Splitter) merge(pieces []string, sep string) []string {
	var chunks []string
	var window []string
	total := 0

	for _, piece := range pieces {
		if len(window) > 0 && total+len(piece)+len(sep) > s.chunkSize {
			if doc := strings.TrimSpace(strings.Join(window, sep)); doc != "" {
				chunks = append(chunks, doc)
			}
			for len(window) > 0 &&
				(total > s.chunkOverlap || total+len(piece)+len(sep) > s.chunkSize) {
				total -= len(window[0])
				if len(window) > 1 {
					total -= len(sep)
				}
				window = window[1:]
			}
		}
		if len(window) > 0 {
			total += len(sep)
		}
		window = append(window, piece)
		total += len(piece)
	}

	if doc := strings.TrimSpace(strings.Join(window, sep)); doc != "" {
		chunks = append(chunks, doc)
	}
	return chunks
}
