package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint computes the canonical cache key for a query outcome.
// The hash covers the normalized query text, the retrieval parameters, the
// requester tier and the corpus version, so that semantically different
// parameter sets never share a key. The same inputs always produce the same
// fingerprint.
func Fingerprint(normalizedQuery string, params RetrievalParams, tier string, corpusVersion int64) string {
	h := sha256.New()
	fmt.Fprintf(h, "q=%s\x00k=%d\x00n=%d\x00s=%d\x00t=%s\x00v=%d",
		normalizedQuery, params.K, params.TopN, params.MaxSubQueries, tier, corpusVersion)
	return hex.EncodeToString(h.Sum(nil))
}
