package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuintileScores(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		reverse bool
		want    []int
	}{
		{"empty", nil, false, []int{}},
		{"single forward", []float64{42}, false, []int{1}},
		{"single reversed", []float64{42}, true, []int{5}},
		{"three distinct forward", []float64{10, 20, 30}, false, []int{1, 2, 3}},
		{"three distinct reversed", []float64{10, 20, 30}, true, []int{5, 4, 3}},
		{"all equal reversed", []float64{3, 3, 3, 3}, true, []int{5, 5, 5, 5}},
		{"five distinct forward", []float64{50, 10, 40, 20, 30}, false, []int{5, 1, 4, 2, 3}},
		{"five distinct reversed", []float64{1, 2, 3, 4, 5}, true, []int{5, 4, 3, 2, 1}},
		{
			"ties forward split by position",
			[]float64{1, 1, 1, 1, 1, 2, 3, 4, 5, 6},
			false,
			[]int{1, 1, 2, 2, 3, 3, 4, 4, 5, 5},
		},
		{
			"duplicate edges reversed falls back to ranks",
			[]float64{0, 0, 0, 0, 0, 0, 1, 2, 3, 4},
			true,
			[]int{5, 5, 4, 4, 3, 3, 2, 2, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuintileScores(tt.values, tt.reverse))
		})
	}
}

func TestQuintileScoresStayInRange(t *testing.T) {
	values := make([]float64, 37)
	for i := range values {
		values[i] = float64((i * 7) % 11)
	}
	for _, reverse := range []bool{false, true} {
		for _, s := range QuintileScores(values, reverse) {
			assert.GreaterOrEqual(t, s, 1)
			assert.LessOrEqual(t, s, 5)
		}
	}
}
