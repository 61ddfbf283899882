package chunk

import (
	"encoding/binary"
	"math"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain"
)

// buildHashFields converts a chunk into a flat map[string]string for HSET.
func buildHashFields(c domain.ContentChunk) map[string]string {
	return map[string]string{
		"context": c.ContextKey,
		"text":    c.Text,
		"vector":  vectorToBytes(c.Embedding),
	}
}

// parseSearchEntry converts a search hit back into a domain result.
func parseSearchEntry(entry db.SearchEntry) domain.SearchResult {
	return domain.SearchResult{
		Text:       entry.Fields["text"],
		ContextKey: entry.Fields["context"],
		Score:      entry.Score,
		Embedding:  bytesToVector(entry.Fields["vector"]),
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
