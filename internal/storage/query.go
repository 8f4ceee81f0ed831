package storage

import (
	"sort"
	"strings"

	"github.com/passvault-app/passvault/internal/models"
)

// Relevance weights. Title beats tags beats description.
const (
	scoreTitle       = 3
	scoreTag         = 2
	scoreDescription = 1
)

// Score rates how well an entry matches a query, case-insensitively.
// A double-encrypted description is opaque and never matched. Zero means
// no match.
func Score(e *models.Entry, query string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return scoreTitle
	}

	score := 0
	if strings.Contains(strings.ToLower(e.Title), q) {
		score += scoreTitle
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			score += scoreTag
			break
		}
	}
	if e.EncryptedDescription == nil && strings.Contains(strings.ToLower(e.Description), q) {
		score += scoreDescription
	}
	return score
}

// SearchEntries returns the entries matching query, ordered by relevance
// and then by updated_at descending. The input slice is not modified.
func SearchEntries(entries []models.Entry, query string) []models.Entry {
	type ranked struct {
		entry models.Entry
		score int
	}

	matches := make([]ranked, 0, len(entries))
	for i := range entries {
		if s := Score(&entries[i], query); s > 0 {
			matches = append(matches, ranked{entry: entries[i], score: s})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].entry.UpdatedAt.After(matches[j].entry.UpdatedAt)
	})

	out := make([]models.Entry, len(matches))
	for i, m := range matches {
		out[i] = m.entry
	}
	return out
}
