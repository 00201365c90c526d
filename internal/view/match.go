package view

import (
	"golang.org/x/text/search"

	"github.com/rail44/userdash/internal/user"
)

// pattern is a compiled search string. A nil pattern matches everywhere.
type pattern struct {
	p *search.Pattern
}

// compile prepares q for repeated case-insensitive matching in the
// collator's locale
func (c *Collator) compile(q string) pattern {
	if q == "" {
		return pattern{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return pattern{p: c.m.CompileString(q)}
}

// index returns the byte range of the first match in s, or -1, -1
func (p pattern) index(s string) (int, int) {
	if p.p == nil {
		return 0, 0
	}
	return p.p.IndexString(s)
}

func (p pattern) contains(s string) bool {
	start, _ := p.index(s)
	return start >= 0
}

// Contains reports whether substr occurs in s, ignoring case. The empty
// string is contained in every string.
func (c *Collator) Contains(s, substr string) bool {
	return c.compile(substr).contains(s)
}

// Matches reports whether u is kept by q: the search text occurs, ignoring
// case, in the name, username or email.
func (c *Collator) Matches(u user.User, q string) bool {
	return c.compile(q).keeps(u)
}

func (p pattern) keeps(u user.User) bool {
	return p.contains(u.Name) || p.contains(u.Username) || p.contains(u.Email)
}
