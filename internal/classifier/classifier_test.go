package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier(DefaultTaxonomy())
	assert.True(t, c.Available())

	tests := []struct {
		input string
		want  string
	}{
		{"Buy followers now, click here!!!", "spam"},
		{"get #freebitcoin today", "spam"},
		{"please KILL YOURSELF", "uncivil"},
		{"see you at 5pm", "safe"},
		{"", "safe"},
	}

	for _, tt := range tests {
		got, err := c.Classify(context.Background(), tt.input)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got, "Classify(%q)", tt.input)
	}
}
