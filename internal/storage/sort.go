package storage

import (
	"cmp"
	"slices"

	"github.com/mcoot/partycoord/internal/model"
)

// SortByCreation orders summaries oldest first, breaking ties by code
func SortByCreation(summaries []*model.PartySummary) {
	slices.SortFunc(summaries, func(a, b *model.PartySummary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
}
