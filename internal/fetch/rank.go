// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"sort"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Rank orders papers newest first and keeps the first n. Ties keep their
// input order. n <= 0 yields an empty list.
func Rank(papers []types.Paper, n int) []types.Paper {
	if n <= 0 {
		return []types.Paper{}
	}

	ranked := make([]types.Paper, len(papers))
	copy(ranked, papers)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Published.After(ranked[j].Published)
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
