package resource

import (
	"strings"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
)

// Searchable exposes the texts a list view searches in.
type Searchable interface {
	SearchText() []string
}

// Search keeps the items with a text containing term, case-insensitively.
// A blank term keeps everything.
func Search[T Searchable](items []T, term string) []T {
	term = core.CleanString(term, true /* lower */)
	if term == "" {
		return items
	}
	found := make([]T, 0, len(items))
	for _, item := range items {
		for _, text := range item.SearchText() {
			if strings.Contains(strings.ToLower(text), term) {
				found = append(found, item)
				break
			}
		}
	}
	return found
}
