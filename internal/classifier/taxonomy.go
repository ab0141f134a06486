package classifier

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/xaenox/filter-bot/internal/models"
)

// Category is one label the oracle may return.
type Category struct {
	Label       string
	Description string
	Abusive     bool
	Keywords    []string
}

// Taxonomy is the closed set of verdict labels: one safe label plus one or
// more abusive categories, in priority order.
type Taxonomy struct {
	safe    Category
	abusive []Category
	strict  bool
}

// NewTaxonomy validates and normalizes the category set.
func NewTaxonomy(safe Category, abusive []Category, strict bool) (*Taxonomy, error) {
	safe.Label = normalizeLabel(safe.Label)
	if safe.Label == "" {
		return nil, fmt.Errorf("safe label is empty")
	}
	if len(abusive) == 0 {
		return nil, fmt.Errorf("no abusive categories configured")
	}

	seen := map[string]bool{safe.Label: true}
	out := make([]Category, 0, len(abusive))
	for _, c := range abusive {
		c.Label = normalizeLabel(c.Label)
		if c.Label == "" {
			return nil, fmt.Errorf("abusive category with empty label")
		}
		if seen[c.Label] {
			return nil, fmt.Errorf("duplicate label %q", c.Label)
		}
		seen[c.Label] = true
		c.Abusive = true
		out = append(out, c)
	}
	safe.Abusive = false

	return &Taxonomy{safe: safe, abusive: out, strict: strict}, nil
}

// DefaultTaxonomy is safe/spam/uncivil.
func DefaultTaxonomy() *Taxonomy {
	t, _ := NewTaxonomy(
		Category{Label: "safe", Description: "the message does not match any other label and seems generally harmless"},
		[]Category{
			{
				Label:       "spam",
				Description: "unsolicited advertising, links, or offers (especially for adult content or products), or content that appears deceptive or intended to trick the reader",
				Keywords:    []string{"buy followers", "click here", "free bitcoin", "earn money fast", "dm me for"},
			},
			{
				Label:       "uncivil",
				Description: "harassment, insults, explicit sexual content, or any form of exploitation",
				Keywords:    []string{"kill yourself", "send nudes"},
			},
		},
		false,
	)
	return t
}

// Safe returns the safe label.
func (t *Taxonomy) Safe() string {
	return t.safe.Label
}

// Labels returns every label, safe last.
func (t *Taxonomy) Labels() []string {
	labels := make([]string, 0, len(t.abusive)+1)
	for _, c := range t.abusive {
		labels = append(labels, c.Label)
	}
	return append(labels, t.safe.Label)
}

// Abusive returns the abusive categories in priority order.
func (t *Taxonomy) Abusive() []Category {
	return t.abusive
}

// Prompt builds the oracle instruction for text.
func (t *Taxonomy) Prompt(text string) string {
	labels := t.Labels()
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = "'" + l + "'"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following message and classify it as %s. ", joinOr(quoted))
	b.WriteString("Consider the overall content of the message.\n")
	for _, c := range t.abusive {
		fmt.Fprintf(&b, "Label the message as '%s' if it contains %s.\n", c.Label, c.Description)
	}
	fmt.Fprintf(&b, "Label it as '%s' if %s.\n", t.safe.Label, t.safe.Description)
	fmt.Fprintf(&b, "Return ONLY one of these words and nothing else: %s.\n\n", strings.Join(quoted, ", "))
	fmt.Fprintf(&b, "Message: %q", text)
	return b.String()
}

// Parse maps a raw oracle response onto the taxonomy.
//
// An exact label always wins. Outside strict mode abusive labels are then
// searched as substrings in priority order. The safe label is only accepted
// as a whole word with no negation before it, so "unsafe" or "not safe"
// never read as safe. Anything else is an unrecognized response.
func (t *Taxonomy) Parse(raw string) (models.Verdict, error) {
	normalized := normalizeLabel(raw)

	if normalized == t.safe.Label {
		return models.Verdict{Label: t.safe.Label, Raw: raw}, nil
	}
	for _, c := range t.abusive {
		if normalized == c.Label {
			return models.Verdict{Label: c.Label, Abusive: true, Raw: raw}, nil
		}
	}

	if !t.strict {
		lowered := strings.ToLower(raw)
		for _, c := range t.abusive {
			if strings.Contains(lowered, c.Label) {
				return models.Verdict{Label: c.Label, Abusive: true, Raw: raw}, nil
			}
		}
		if affirmsLabel(lowered, t.safe.Label) {
			return models.Verdict{Label: t.safe.Label, Raw: raw}, nil
		}
	}

	return models.Verdict{}, &OracleError{
		Kind: KindUnrecognized,
		Err:  fmt.Errorf("response %q matches none of %v", truncate(raw, 80), t.Labels()),
	}
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "isnt": true, "isn't": true,
	"hardly": true, "neither": true, "nor": true,
}

// affirmsLabel reports whether label occurs in text as whole words and no
// negation precedes it.
func affirmsLabel(text, label string) bool {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	want := strings.Fields(label)
	if len(want) == 0 {
		return false
	}

	for i := 0; i+len(want) <= len(words); i++ {
		if negations[strings.Trim(words[i], "'")] || negations[words[i]] {
			return false
		}
		if equalWords(words[i:i+len(want)], want) {
			return true
		}
	}
	return false
}

func equalWords(a, b []string) bool {
	for i := range b {
		if strings.Trim(a[i], "'") != b[i] {
			return false
		}
	}
	return true
}

func normalizeLabel(s string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(s)), " \t\r\n'\"`.!*")
}

func joinOr(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " or " + items[len(items)-1]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
