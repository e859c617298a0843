// Package leaderboard derives a ranked view over a ledger snapshot.
package leaderboard

import (
	"sort"

	"live-quiz-service/internal/domain"
)

// Less defines the total order over responses: score descending, then time
// taken ascending, then submission time ascending, then response id as the
// absolute tie-breaker. Exported so storage layers can share the ordering.
func Less(a, b domain.Response) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.TimeTakenSeconds != b.TimeTakenSeconds {
		return a.TimeTakenSeconds < b.TimeTakenSeconds
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.ID < b.ID
}

// Rank orders a ledger snapshot into leaderboard entries. The input is not
// mutated and the output is fully determined by the set of responses,
// regardless of arrival order.
func Rank(responses []domain.Response) []domain.LeaderboardEntry {
	sorted := make([]domain.Response, len(responses))
	copy(sorted, responses)
	sort.Slice(sorted, func(i, j int) bool {
		return Less(sorted[i], sorted[j])
	})

	entries := make([]domain.LeaderboardEntry, len(sorted))
	for i, r := range sorted {
		entries[i] = domain.LeaderboardEntry{
			Rank:             i + 1,
			ResponseID:       r.ID,
			Name:             r.Name,
			Score:            r.Score,
			TimeTakenSeconds: r.TimeTakenSeconds,
			SubmittedAt:      r.SubmittedAt,
		}
	}
	return entries
}

// Top truncates an already ranked sequence to its first n entries. n <= 0
// means no truncation. Relative order of the retained entries is untouched.
func Top(entries []domain.LeaderboardEntry, n int) []domain.LeaderboardEntry {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[:n]
}
