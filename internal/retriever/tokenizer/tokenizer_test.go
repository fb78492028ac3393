package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", " \t\n ", []string{}},
		{"lowercases and strips punctuation", "Hello, World!", []string{"hello", "world"}},
		{"drops stop words", "The cat and the dog", []string{"cat", "dog"}},
		{"drops short tokens", "a an to go ok", []string{}},
		{"splits on punctuation", "budget-optimization/strategy", []string{"budget", "optimization", "strategy"}},
		{"keeps underscores", "snake_case_term", []string{"snake_case_term"}},
		{"keeps digits", "ROI 10x 2024", []string{"roi", "10x", "2024"}},
		{"keeps duplicates", "apple Apple APPLE", []string{"apple", "apple", "apple"}},
		{"non ascii letters become boundaries", "café résumé", []string{"caf", "sum"}},
		{"scripts without spaces under-tokenize", "数据分析报告", []string{}},
		{"unicode whitespace splits", "alpha\u2003beta", []string{"alpha", "beta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("which"))
	assert.False(t, IsStopWord("budget"))
	assert.False(t, IsStopWord("The"), "stop words are matched after lowercasing")
}

func BenchmarkTokenize(b *testing.B) {
	text := strings.Repeat("Agent orchestration patterns: a central orchestrator analyzes input and activates specialist agents. ", 20)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Tokenize(text)
	}
}
