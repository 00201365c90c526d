// Package view derives the displayed rows from the fetched user list: search
// filtering, single-field sorting and match highlighting.
package view

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/search"

	"github.com/rail44/userdash/internal/user"
)

// DefaultLocale is used for collation when none is configured
const DefaultLocale = "en"

// Collator compares and searches strings in locale order. collate.Collator
// keeps internal buffers and is not safe for concurrent use, so calls are
// serialized.
type Collator struct {
	mu  sync.Mutex
	c   *collate.Collator
	m   *search.Matcher
	tag language.Tag
}

// NewCollator creates a collator for a BCP 47 locale such as "en" or "de-CH"
func NewCollator(locale string) (*Collator, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return &Collator{
		c:   collate.New(tag),
		m:   search.New(tag, search.IgnoreCase),
		tag: tag,
	}, nil
}

// Locale returns the collator's language tag
func (c *Collator) Locale() string {
	return c.tag.String()
}

// Compare returns -1, 0 or 1 as a sorts before, equal to, or after b
func (c *Collator) Compare(a, b string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.c.CompareString(a, b)
}

// Derive returns the users matching q, ordered ascending by field.
// Users with equal sort keys keep their fetch order. users is not modified.
func Derive(users []user.User, q string, field user.SortField, c *Collator) []user.User {
	p := c.compile(q)
	out := make([]user.User, 0, len(users))
	for _, u := range users {
		if p.keeps(u) {
			out = append(out, u)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		return c.c.CompareString(field.Value(out[i]), field.Value(out[j])) < 0
	})
	return out
}
