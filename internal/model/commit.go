package model

import "time"

// DateLayout is the calendar-date form used for grouping and filtering.
const DateLayout = "2006-01-02"

// Commit represents a git commit
type Commit struct {
	Hash        string    `json:"hash"`
	Subject     string    `json:"subject"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	When        time.Time `json:"when"`
}

// ShortHash returns the abbreviated hash used in logs and plan output.
func (c Commit) ShortHash() string {
	if len(c.Hash) < 8 {
		return c.Hash
	}
	return c.Hash[:8]
}

// Date returns the local calendar date the commit belongs to.
func (c Commit) Date() string {
	return c.When.Format(DateLayout)
}

// Signature is the author identity attached to a synthesized commit.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}
