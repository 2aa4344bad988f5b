package projection

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// newCollator returns a root-locale collator. Collators keep internal
// buffers, so each projection call builds its own.
func newCollator() *collate.Collator {
	return collate.New(language.Und)
}

// sortByName orders items by name with c, keeping input order among equals.
func sortByName[T any](c *collate.Collator, items []T, name func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return c.CompareString(name(items[i]), name(items[j])) < 0
	})
}
