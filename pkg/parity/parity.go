// Package parity computes the redundancy chunks for raid4/5/6 stripe sets.
// Both parities are pure functions over in-memory buffers; chunks shorter
// than the longest sibling are treated as zero-extended.
package parity

import (
	"github.com/raidforge/raidforge/pkg/gf256"
	"github.com/raidforge/raidforge/pkg/types"
)

func maxChunkLength(chunks [][]byte) int {
	maxLength := 0
	for _, chunk := range chunks {
		if len(chunk) > maxLength {
			maxLength = len(chunk)
		}
	}
	return maxLength
}

// XOR returns the P parity of the chunk set: the byte-wise XOR over all
// chunks, each zero-extended to the longest chunk length.
func XOR(chunks [][]byte) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, types.ErrNoChunks
	}

	result := make([]byte, maxChunkLength(chunks))
	for _, chunk := range chunks {
		for i, b := range chunk {
			result[i] ^= b
		}
	}
	return result, nil
}

// Q returns the Reed-Solomon-style parity of the chunk set: each chunk j is
// weighted by gf256.Coefficient(j) before the XOR accumulation. Combined with
// the P parity this allows recovery from the loss of any one chunk plus the
// loss of either parity.
func Q(chunks [][]byte) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, types.ErrNoChunks
	}

	result := make([]byte, maxChunkLength(chunks))
	for j, chunk := range chunks {
		coefficient := gf256.Coefficient(j)
		for i, b := range chunk {
			result[i] ^= gf256.Mul(b, coefficient)
		}
	}
	return result, nil
}
