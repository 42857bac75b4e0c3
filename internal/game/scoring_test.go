package game_test

import (
	"reflect"
	"testing"

	"suquid-trivia-server/internal/domain"
	"suquid-trivia-server/internal/game"
)

func TestScoreRoundBaseAndSpeedBonus(t *testing.T) {
	scores := map[string]int{"alice": 0, "bob": 0, "carol": 0}
	answers := map[string]string{"alice": "B", "bob": "B", "carol": "A"}
	arrival := []string{"carol", "alice", "bob"}

	points := game.ScoreRound(scores, answers, arrival, "B", 3)

	// carol arrived first but was wrong; alice is the first correct
	// answerer and takes the n-1 bonus on top of the base point.
	if points["alice"] != 3 {
		t.Fatalf("expected alice to earn 1+2 points, got %d", points["alice"])
	}
	if points["bob"] != 1 {
		t.Fatalf("expected bob to earn 1 point, got %d", points["bob"])
	}
	if points["carol"] != 0 {
		t.Fatalf("expected carol to earn nothing, got %d", points["carol"])
	}
	if scores["alice"] != 3 || scores["bob"] != 1 || scores["carol"] != 0 {
		t.Fatalf("unexpected totals: %v", scores)
	}
}

func TestScoreRoundNoCorrectAnswers(t *testing.T) {
	scores := map[string]int{"alice": 2, "bob": 1}
	answers := map[string]string{"alice": "A", "bob": "C"}

	points := game.ScoreRound(scores, answers, []string{"alice", "bob"}, "B", 2)

	if points["alice"] != 0 || points["bob"] != 0 {
		t.Fatalf("expected no points, got %v", points)
	}
	if scores["alice"] != 2 || scores["bob"] != 1 {
		t.Fatalf("totals must not change: %v", scores)
	}
}

func TestScoreRoundUnseededPlayer(t *testing.T) {
	// A player registered mid-session is not in the score map; a correct
	// answer starts them from zero instead of crashing.
	scores := map[string]int{"alice": 1}
	answers := map[string]string{"alice": "B", "late": "B"}

	game.ScoreRound(scores, answers, []string{"late", "alice"}, "B", 2)

	if scores["late"] != 2 {
		t.Fatalf("expected late joiner to hold 1+1 points, got %d", scores["late"])
	}
}

func TestRankScoreboardTies(t *testing.T) {
	rows := game.RankScoreboard(map[string]int{"a": 10, "b": 8, "c": 8, "d": 5})
	ranks := []int{rows[0].Rank, rows[1].Rank, rows[2].Rank, rows[3].Rank}
	if !reflect.DeepEqual(ranks, []int{1, 2, 2, 4}) {
		t.Fatalf("expected ranks [1 2 2 4], got %v", ranks)
	}
}

func TestRankScoreboardAllTied(t *testing.T) {
	rows := game.RankScoreboard(map[string]int{"a": 5, "b": 5, "c": 5})
	want := []domain.ScoreboardRow{
		{Rank: 1, Username: "a", Score: 5},
		{Rank: 1, Username: "b", Score: 5},
		{Rank: 1, Username: "c", Score: 5},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("expected %v, got %v", want, rows)
	}
}

func TestRankScoreboardEmpty(t *testing.T) {
	if rows := game.RankScoreboard(map[string]int{}); len(rows) != 0 {
		t.Fatalf("expected empty scoreboard, got %v", rows)
	}
}
