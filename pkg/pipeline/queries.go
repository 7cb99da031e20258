package pipeline

import "strings"

// GenerateQueries derives up to n search queries from the question.
func GenerateQueries(question string, n int) []string {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}
	queries := []string{
		question,
		"latest information about " + question,
		"recent developments in " + question,
	}
	if n > 0 && n < len(queries) {
		queries = queries[:n]
	}
	return queries
}

// cleanQuery strips quote characters, which some search APIs reject.
func cleanQuery(q string) string {
	q = strings.ReplaceAll(q, `"`, "")
	q = strings.ReplaceAll(q, "'", "")
	return strings.TrimSpace(q)
}
