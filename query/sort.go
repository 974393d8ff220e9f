package query

import "strings"

// Sortable columns per entity. Anything else falls back to created_at.
var (
	JobSortColumns     = []string{"created_at", "title", "salary_min", "salary_max", "views", "location"}
	CompanySortColumns = []string{"created_at", "name", "industry", "location"}
	UserSortColumns    = []string{"created_at", "name", "location"}
)

// DefaultSortColumn is used when sortBy is empty or not sortable.
const DefaultSortColumn = "created_at"

// Sorting maps an API sort field and direction to ORDER BY terms. Unknown
// fields use created_at, unknown directions use descending, and id is always
// appended as a tie-breaker so pages are stable.
func Sorting(allowed []string, sortBy, sortOrder string) []Order {
	column := DefaultSortColumn
	if candidate := toSnake(sortBy); candidate != "" {
		for _, c := range allowed {
			if c == candidate {
				column = candidate
				break
			}
		}
	}

	desc := !strings.EqualFold(strings.TrimSpace(sortOrder), "asc")

	return []Order{
		{Column: column, Desc: desc},
		{Column: "id", Desc: desc},
	}
}
