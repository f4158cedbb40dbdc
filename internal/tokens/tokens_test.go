package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimatingCounter(t *testing.T) {
	counter := NewEstimatingCounter()
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"test", 1},
		{"testing", 2},
		{"The quick brown fox jumps over the lazy dog.", 11},
		{string(make([]byte, 100)), 25},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, counter.Count(tt.input), "Count(%q)", tt.input)
	}
}

type fixedCounter int

func (f fixedCounter) Count(string) int { return int(f) }

func TestExchange(t *testing.T) {
	require.Equal(t, 1+2+1, Exchange(nil, "test", "testing", "ok"))
	require.Equal(t, 9, Exchange(fixedCounter(3), "a", "b", "c"))
	require.Zero(t, Exchange(nil, "", "", ""))
}

var benchInput = strings.Repeat("The quick brown fox jumps over the lazy dog. ", 100)

func BenchmarkEstimatingCounter(b *testing.B) {
	counter := &EstimatingCounter{}
	b.ResetTimer()
	for b.Loop() {
		counter.Count(benchInput)
	}
}
