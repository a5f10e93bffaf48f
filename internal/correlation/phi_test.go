package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhiCoefficient(t *testing.T) {
	tests := []struct {
		name               string
		n11, n10, n01, n00 int
		want               float64
	}{
		{"perfect positive", 5, 0, 0, 5, 1.0},
		{"perfect negative", 0, 5, 5, 0, -1.0},
		{"independent", 25, 25, 25, 25, 0.0},
		{"zero marginal", 0, 0, 3, 7, 0.0},
		{"all zero", 0, 0, 0, 0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PhiCoefficient(tt.n11, tt.n10, tt.n01, tt.n00)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPhiCoefficient_Bounds(t *testing.T) {
	for n11 := 0; n11 <= 4; n11++ {
		for n10 := 0; n10 <= 4; n10++ {
			for n01 := 0; n01 <= 4; n01++ {
				for n00 := 0; n00 <= 4; n00++ {
					phi := PhiCoefficient(n11, n10, n01, n00)
					assert.GreaterOrEqual(t, phi, -1.0)
					assert.LessOrEqual(t, phi, 1.0)
				}
			}
		}
	}
}

func TestPhiCoefficient_Symmetry(t *testing.T) {
	// Swapping the two variables swaps n10 and n01 and leaves phi alone.
	assert.InDelta(t, PhiCoefficient(3, 1, 2, 8), PhiCoefficient(3, 2, 1, 8), 1e-9)
}
