// Package notes loads a Google Keep Takeout export into plain notes.
package notes

import (
	"strings"
	"time"
)

// Note is one Keep note reduced to what extraction needs.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Labels    []string  `json:"labels,omitempty"`
	Archived  bool      `json:"archived,omitempty"`
}

// Text returns the title and content joined by a newline.
func (n Note) Text() string {
	switch {
	case n.Title == "":
		return n.Content
	case n.Content == "":
		return n.Title
	}
	return n.Title + "\n" + n.Content
}

// Snippet returns the first limit runes of the content (or the title when the
// note has no content), on one line.
func (n Note) Snippet(limit int) string {
	s := n.Content
	if s == "" {
		s = n.Title
	}
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit])
	}
	return s
}

// Chunk splits notes into consecutive chunks of at most size notes.
func Chunk(notes []Note, size int) [][]Note {
	if size < 1 {
		size = 1
	}
	var chunks [][]Note
	for start := 0; start < len(notes); start += size {
		end := min(start+size, len(notes))
		chunks = append(chunks, notes[start:end])
	}
	return chunks
}
