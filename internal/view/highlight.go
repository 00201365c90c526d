package view

import (
	"strings"

	"github.com/rail44/userdash/internal/user"
)

// Segment is a run of text that either matched the search or did not
type Segment struct {
	Text  string `json:"text"`
	Match bool   `json:"match,omitempty"`
}

// Highlight splits text into alternating unmatched and matched segments.
// Every case-insensitive occurrence of q is matched, left to right and
// without overlap. q is compared literally; it is never interpreted as a
// pattern. Concatenating the segment texts reproduces text.
func (c *Collator) Highlight(text, q string) []Segment {
	return c.compile(q).highlight(text)
}

func (p pattern) highlight(text string) []Segment {
	if text == "" {
		return nil
	}
	if p.p == nil {
		return []Segment{{Text: text}}
	}

	var segments []Segment
	i := 0
	for i < len(text) {
		start, end := p.index(text[i:])
		if start < 0 || end <= start {
			break
		}
		if start > 0 {
			segments = append(segments, Segment{Text: text[i : i+start]})
		}
		segments = append(segments, Segment{Text: text[i+start : i+end], Match: true})
		i += end
	}
	if i < len(text) {
		segments = append(segments, Segment{Text: text[i:]})
	}
	return segments
}

// Join concatenates segments, passing matched text through mark
func Join(segments []Segment, mark func(string) string) string {
	var b strings.Builder
	for _, s := range segments {
		if s.Match && mark != nil {
			b.WriteString(mark(s.Text))
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// Row is one displayed record with its highlighted columns
type Row struct {
	User  user.User
	Name  []Segment
	Email []Segment
}

// Rows highlights the name and email of each user
func Rows(users []user.User, q string, c *Collator) []Row {
	p := c.compile(q)
	rows := make([]Row, len(users))
	for i, u := range users {
		rows[i] = Row{
			User:  u,
			Name:  p.highlight(u.Name),
			Email: p.highlight(u.Email),
		}
	}
	return rows
}
