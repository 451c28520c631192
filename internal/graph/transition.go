package graph

// resolveNext implements §4.1: evaluate the node's Then predicate against
// the post-execution state and validate the result against schemaNames ∪
// {END, ERROR}. A dynamic transition returning a sentinel is always
// accepted even though sentinels are never members of schemaNames.
func resolveNext(from string, then Then, state *WorkflowState, schemaNames map[string]struct{}) (string, error) {
	next := then(state)
	if next == End || next == Error {
		return next, nil
	}
	if _, ok := schemaNames[next]; ok {
		return next, nil
	}
	valid := make([]string, 0, len(schemaNames)+2)
	for name := range schemaNames {
		valid = append(valid, name)
	}
	valid = append(valid, End, Error)
	return "", &InvalidTransitionError{From: from, Returned: next, Valid: valid}
}
