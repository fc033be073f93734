package mcp_test

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// generateRandomJSON builds a JSON object whose marshaled size is at least minBytes,
// padding a single string field so transport tests can exercise large payloads without
// needing to unmarshal arbitrary binary noise.
func generateRandomJSON(minBytes int) json.RawMessage {
	const chunk = "the quick brown fox jumps over the lazy dog "

	padding := make([]byte, 0, minBytes)
	for len(padding) < minBytes {
		padding = append(padding, chunk...)
	}

	payload := struct {
		Seed    int64  `json:"seed"`
		Padding string `json:"padding"`
	}{
		Seed:    rand.Int63(),
		Padding: string(padding),
	}

	bs, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("generateRandomJSON: %v", err))
	}
	return bs
}
