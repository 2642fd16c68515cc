package cover

import (
	"sort"

	"coverarr/internal/domain"
)

// AutoPick keeps the best candidate of every volume-name group and suppresses
// the rest from the returned view. The backing slice is left untouched, so
// suppressed books stay available for manual selection.
//
// Candidates within a group are ranked by page-browsing support (only while a
// page preference is active), then quality score, then the provider's position
// in the user's selected-provider order.
func AutoPick(books []*domain.Book, providers map[string]*domain.Provider, pagePreference bool) []*domain.Book {
	groups := make(map[string][]*domain.Book)
	order := make([]string, 0)

	for _, book := range books {
		if _, ok := groups[book.VolumeName]; !ok {
			order = append(order, book.VolumeName)
		}
		groups[book.VolumeName] = append(groups[book.VolumeName], book)
	}

	kept := make([]*domain.Book, 0, len(order))

	for _, name := range order {
		group := groups[name]
		if len(group) == 1 {
			kept = append(kept, group[0])
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			a, b := group[i], group[j]

			if pagePreference {
				aPages := supportsPages(providers, a.ProviderID)
				bPages := supportsPages(providers, b.ProviderID)
				if aPages != bPages {
					return aPages
				}
			}

			if scoreOf(a) != scoreOf(b) {
				return scoreOf(a) > scoreOf(b)
			}

			return priorityOf(providers, a.ProviderID) < priorityOf(providers, b.ProviderID)
		})

		kept = append(kept, group[0])
	}

	return kept
}

func scoreOf(book *domain.Book) int {
	if book.Meta == nil {
		return 0
	}
	return book.Meta.Score
}

func supportsPages(providers map[string]*domain.Provider, id string) bool {
	if p, ok := providers[id]; ok {
		return p.SupportsBookPages
	}
	return false
}

func priorityOf(providers map[string]*domain.Provider, id string) int {
	if p, ok := providers[id]; ok {
		return p.Priority
	}
	return int(^uint(0) >> 1)
}
