package game

import (
	"sort"

	"suquid-trivia-server/internal/domain"
)

// ScoreRound applies one round's results to the session score map and
// returns the per-player point deltas. Every correct answer earns one base
// point; the earliest-arrived correct answer additionally earns a speed
// bonus of livePlayers-1. Arrival is a total order (answers are recorded
// sequentially under the engine lock), so the bonus winner is unambiguous.
func ScoreRound(scores map[string]int, answers map[string]string, arrival []string, correctOption string, livePlayers int) map[string]int {
	points := make(map[string]int, len(answers))
	for username, answer := range answers {
		if answer == correctOption {
			scores[username]++
			points[username] = 1
		} else {
			points[username] = 0
		}
	}

	for _, username := range arrival {
		if answers[username] != correctOption {
			continue
		}
		bonus := livePlayers - 1
		scores[username] += bonus
		points[username] += bonus
		break
	}
	return points
}

// RankScoreboard produces the ranked scoreboard: score descending with
// standard competition ranking, so [10,8,8,5] ranks as [1,2,2,4]. Ties are
// ordered by username so the output is deterministic.
func RankScoreboard(scores map[string]int) []domain.ScoreboardRow {
	rows := make([]domain.ScoreboardRow, 0, len(scores))
	for username, score := range scores {
		rows = append(rows, domain.ScoreboardRow{Username: username, Score: score})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Username < rows[j].Username
	})

	for i := range rows {
		if i > 0 && rows[i].Score == rows[i-1].Score {
			rows[i].Rank = rows[i-1].Rank
		} else {
			rows[i].Rank = i + 1
		}
	}
	return rows
}
