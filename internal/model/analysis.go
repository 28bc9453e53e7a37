package model

// CommitCategories partitions a batch of commit subjects by change kind.
// Every subject lands in exactly one list.
type CommitCategories struct {
	Features     []string `json:"features"`
	Fixes        []string `json:"fixes"`
	Tests        []string `json:"tests"`
	Docs         []string `json:"docs"`
	Dependencies []string `json:"dependencies"`
	Refactoring  []string `json:"refactoring"`
	Performance  []string `json:"performance"`
	Other        []string `json:"other"`
}

// Total returns the number of categorized subjects.
func (c CommitCategories) Total() int {
	return len(c.Features) + len(c.Fixes) + len(c.Tests) + len(c.Docs) +
		len(c.Dependencies) + len(c.Refactoring) + len(c.Performance) + len(c.Other)
}

// ChangeAnalysis is the structured result of analyzing a commit batch and its diff.
type ChangeAnalysis struct {
	Categories            CommitCategories `json:"categories"`
	DiffStats             string           `json:"diff_stats"`
	HasCriticalChanges    bool             `json:"has_critical_changes"`
	HasMockedDependencies bool             `json:"has_mocked_dependencies"`
	HasIncompleteFeatures bool             `json:"has_incomplete_features"`
	FileChanges           map[string]int   `json:"file_changes"`
}

// NeedsReview reports whether any special condition was detected.
func (a ChangeAnalysis) NeedsReview() bool {
	return a.HasCriticalChanges || a.HasMockedDependencies || a.HasIncompleteFeatures
}
