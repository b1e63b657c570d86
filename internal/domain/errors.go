package domain

import (
	"fmt"
	"strings"
)

// MissingColumnError reports required attribute columns absent from a
// state's table. It is a schema failure and always fatal.
type MissingColumnError struct {
	State   string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing vehicle columns for %s: %s", e.State, strings.Join(e.Columns, ", "))
}

// MissingColumns returns the entries of required not present in header.
func MissingColumns(header []string, required []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
