package domain

import (
	"errors"
	"math"
	"testing"
)

func TestModelDimension(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
		{"some-future-model", 1536},
		{"", 1536},
	}
	for _, tc := range tests {
		if got := ModelDimension(tc.model); got != tc.want {
			t.Errorf("ModelDimension(%q) = %d, want %d", tc.model, got, tc.want)
		}
	}
}

func TestValidateVector_OK(t *testing.T) {
	if err := ValidateVector([]float32{0.1, -0.5, 0.9}, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateVector_Empty(t *testing.T) {
	err := ValidateVector(nil, 3)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestValidateVector_DimMismatch(t *testing.T) {
	err := ValidateVector([]float32{0.1, 0.2}, 3)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestValidateVector_NonFinite(t *testing.T) {
	err := ValidateVector([]float32{0.1, float32(math.NaN())}, 2)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for NaN, got %v", err)
	}

	err = ValidateVector([]float32{float32(math.Inf(1))}, 1)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for Inf, got %v", err)
	}
}

func TestValidateVector_OutOfRangeIsLegal(t *testing.T) {
	vec := []float32{2.5, -3.0, 0.1}
	if err := ValidateVector(vec, 3); err != nil {
		t.Fatalf("out-of-range values should validate: %v", err)
	}
	if n := CountOutOfRange(vec); n != 2 {
		t.Errorf("CountOutOfRange = %d, want 2", n)
	}
}

func TestZeroVector(t *testing.T) {
	vec := ZeroVector(4)
	if len(vec) != 4 {
		t.Fatalf("expected 4 dims, got %d", len(vec))
	}
	for i, v := range vec {
		if v != 0 {
			t.Errorf("vec[%d] = %f, want 0", i, v)
		}
	}
}

func TestConvertedDocument_IsValid(t *testing.T) {
	var nilDoc *ConvertedDocument
	if nilDoc.IsValid() {
		t.Error("nil document should be invalid")
	}
	if (&ConvertedDocument{Text: " \n\t "}).IsValid() {
		t.Error("whitespace-only document should be invalid")
	}
	if !(&ConvertedDocument{Text: "hello"}).IsValid() {
		t.Error("document with text should be valid")
	}
}
