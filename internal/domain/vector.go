package domain

import (
	"fmt"
	"math"
)

// DefaultEmbeddingDimension is used for models not present in the dimension table.
const DefaultEmbeddingDimension = 1536

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// ModelDimension returns the output dimension for a known embedding model,
// or DefaultEmbeddingDimension for unknown models.
func ModelDimension(model string) int {
	if dim, ok := modelDimensions[model]; ok {
		return dim
	}
	return DefaultEmbeddingDimension
}

// ValidateVector checks that a vector is non-empty, has the expected dimension,
// and contains only finite values. Values outside the usual [-1, 1] range are
// legal and left to the caller to warn about.
func ValidateVector(vec []float32, dim int) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: embedding vector is empty", ErrValidation)
	}
	if dim > 0 && len(vec) != dim {
		return fmt.Errorf("%w: embedding dimension %d, expected %d", ErrValidation, len(vec), dim)
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite value at position %d", ErrValidation, i)
		}
	}
	return nil
}

// CountOutOfRange returns how many vector entries fall outside [-1, 1].
func CountOutOfRange(vec []float32) int {
	n := 0
	for _, v := range vec {
		if v < -1 || v > 1 {
			n++
		}
	}
	return n
}

// ZeroVector returns an all-zero vector of the given dimension. Used as the
// placeholder embedding for empty texts in batch requests.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}
