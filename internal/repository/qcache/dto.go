package qcache

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain"
)

func parseCachedEntry(entry db.SearchEntry) domain.CachedResult {
	hits, _ := strconv.ParseInt(entry.Fields["hits"], 10, 64)
	return domain.CachedResult{
		ID:         idFromKey(entry.Key),
		ContextKey: entry.Fields["context"],
		QueryText:  entry.Fields["text"],
		Answer:     entry.Fields["answer"],
		Score:      entry.Score,
		Hits:       hits,
	}
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
