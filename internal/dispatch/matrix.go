package dispatch

// EmitMatrix takes the leading maxConcurrent entries of ready (already
// priority-sorted) and renders them into the dispatch wire format.
// maxConcurrent <= 0 means unbounded.
func EmitMatrix(ready []*ResolvedIssue, maxConcurrent int) Matrix {
	n := len(ready)
	if maxConcurrent > 0 && maxConcurrent < n {
		n = maxConcurrent
	}

	entries := make([]MatrixEntry, 0, n)
	for _, r := range ready[:n] {
		entries = append(entries, MatrixEntry{
			IssueNumber:       r.Issue.Number,
			Title:             r.Issue.Title,
			Priority:          string(r.Priority),
			PriorityScore:     r.PriorityScore,
			Repository:        r.Issue.Owner + "/" + r.Issue.Repo,
			URL:               r.Issue.URL,
			ParentIssueNumber: r.Issue.ParentIssueNumber,
		})
	}
	return Matrix{Include: entries}
}
