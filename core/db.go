package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderByClause joins orderings into an ORDER BY expression, keeping only fields in `allowed`.
// It returns `fallback` when nothing is left.
func OrderByClause(ordering []DBOrdering, allowed map[string]bool, fallback string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			parts = append(parts, ord.String())
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}
