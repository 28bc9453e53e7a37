package model

import "github.com/maxbolgarin/errm"

var (
	// ErrNoCommits means the repository yields nothing to squash.
	ErrNoCommits = errm.New("no commits found to squash")

	// ErrInvalidDateRange means the date filter excluded every commit.
	ErrInvalidDateRange = errm.New("no commits found in the requested date range")
)
