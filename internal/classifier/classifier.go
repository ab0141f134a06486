package classifier

import (
	"context"
	"strings"
)

// Classifier is the Classification Oracle Client: one call per request,
// returning the oracle's raw answer.
type Classifier interface {
	// Available is fixed at construction; false means credentials were missing.
	Available() bool
	Classify(ctx context.Context, text string) (string, error)
}

// KeywordClassifier answers from the taxonomy's keyword lists without any
// remote call. Used for local development and dry runs.
type KeywordClassifier struct {
	taxonomy *Taxonomy
}

func NewKeywordClassifier(taxonomy *Taxonomy) *KeywordClassifier {
	return &KeywordClassifier{taxonomy: taxonomy}
}

func (c *KeywordClassifier) Available() bool {
	return true
}

// Classify returns the first abusive category with a matching keyword or
// hashtag, else the safe label.
func (c *KeywordClassifier) Classify(ctx context.Context, text string) (string, error) {
	content := strings.ToLower(text)

	hashtags := make(map[string]struct{})
	for _, word := range strings.Fields(content) {
		if strings.HasPrefix(word, "#") {
			if tag := strings.TrimPrefix(word, "#"); tag != "" {
				hashtags[tag] = struct{}{}
			}
		}
	}

	for _, category := range c.taxonomy.Abusive() {
		for _, keyword := range category.Keywords {
			keyword = strings.ToLower(keyword)
			if strings.Contains(content, keyword) {
				return category.Label, nil
			}
			if _, ok := hashtags[strings.ReplaceAll(keyword, " ", "")]; ok {
				return category.Label, nil
			}
		}
	}
	return c.taxonomy.Safe(), nil
}
