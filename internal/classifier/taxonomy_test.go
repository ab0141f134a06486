package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxonomyParse(t *testing.T) {
	tax := DefaultTaxonomy()

	tests := []struct {
		name    string
		raw     string
		label   string
		abusive bool
	}{
		{"exact safe", "safe", "safe", false},
		{"exact spam", "spam", "spam", true},
		{"upper case", "SPAM", "spam", true},
		{"quoted with period", "'Uncivil'.", "uncivil", true},
		{"surrounding text", "This message is spam because of the link.", "spam", true},
		{"abusive beats safe", "not safe: spam", "spam", true},
		{"priority order", "uncivil and spam", "spam", true},
		{"safe in sentence", "The message looks safe to me", "safe", false},
		{"whitespace", "  safe\n", "safe", false},
		{"safe as word", "Safe: no issues found.", "safe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tax.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.label, v.Label)
			assert.Equal(t, tt.abusive, v.Abusive)
			assert.Equal(t, tt.raw, v.Raw)
		})
	}
}

func TestTaxonomyParseUnrecognized(t *testing.T) {
	tax := DefaultTaxonomy()

	for _, raw := range []string{
		"", "I cannot help with that", "maybe",
		"unsafe", "This message is not safe.", "NOT SAFE", "It isn't safe", "safety first",
	} {
		_, err := tax.Parse(raw)
		kind, ok := IsOracleError(err)
		require.True(t, ok, "Parse(%q) error = %v", raw, err)
		assert.Equal(t, KindUnrecognized, kind)
	}
}

func TestTaxonomyParseStrict(t *testing.T) {
	tax, err := NewTaxonomy(Category{Label: "safe"}, []Category{{Label: "spam"}}, true)
	require.NoError(t, err)

	v, err := tax.Parse(" Spam. ")
	require.NoError(t, err)
	assert.True(t, v.Abusive)

	_, err = tax.Parse("this is not spam")
	kind, ok := IsOracleError(err)
	require.True(t, ok)
	assert.Equal(t, KindUnrecognized, kind)
}

func TestNewTaxonomyValidation(t *testing.T) {
	_, err := NewTaxonomy(Category{Label: ""}, []Category{{Label: "spam"}}, false)
	assert.Error(t, err)

	_, err = NewTaxonomy(Category{Label: "safe"}, nil, false)
	assert.Error(t, err)

	_, err = NewTaxonomy(Category{Label: "safe"}, []Category{{Label: "Safe"}}, false)
	assert.Error(t, err)

	_, err = NewTaxonomy(Category{Label: "safe"}, []Category{{Label: "spam"}, {Label: "SPAM"}}, false)
	assert.Error(t, err)
}

func TestTaxonomyPrompt(t *testing.T) {
	tax := DefaultTaxonomy()
	prompt := tax.Prompt("Buy followers now")

	assert.Contains(t, prompt, "'spam', 'uncivil' or 'safe'")
	assert.Contains(t, prompt, "Return ONLY one of these words")
	assert.True(t, strings.HasSuffix(prompt, `Message: "Buy followers now"`))
	assert.Equal(t, []string{"spam", "uncivil", "safe"}, tax.Labels())
}
