package scoring

import (
	"math/rand"
	"testing"
	"time"

	"quizclash-service/internal/domain"
)

func TestBaseScoreBounds(t *testing.T) {
	prev := 1001
	for tta := 0.0; tta <= 20.0; tta += 0.5 {
		got := BaseScore(tta, 20)
		if got < 500 || got > 1000 {
			t.Fatalf("base score out of range at t=%.1f: %d", tta, got)
		}
		if got > prev {
			t.Fatalf("base score increased at t=%.1f: %d > %d", tta, got, prev)
		}
		prev = got
	}
	if got := BaseScore(0, 20); got != 1000 {
		t.Fatalf("instant answer should score 1000, got %d", got)
	}
	if got := BaseScore(20, 20); got != 500 {
		t.Fatalf("full-time answer should score 500, got %d", got)
	}
	// Overtime clamps at the floor.
	if got := BaseScore(45, 20); got != 500 {
		t.Fatalf("overtime answer should score 500, got %d", got)
	}
}

func TestStreakMultiplier(t *testing.T) {
	cases := []struct {
		streak int
		want   float64
	}{
		{0, 1.0}, {1, 1.0}, {2, 1.1}, {3, 1.2}, {4, 1.3}, {5, 1.5}, {9, 1.5},
	}
	prev := 0.0
	for _, c := range cases {
		got := StreakMultiplier(c.streak)
		if got != c.want {
			t.Fatalf("streak %d: expected %.1f, got %.1f", c.streak, c.want, got)
		}
		if got < prev {
			t.Fatalf("multiplier decreased at streak %d", c.streak)
		}
		prev = got
	}
}

func TestAnsweringPointsWrongResetsStreak(t *testing.T) {
	for _, streak := range []int{0, 1, 4, 7} {
		points, newStreak := AnsweringPoints(false, 3, 20, streak)
		if points != 0 || newStreak != 0 {
			t.Fatalf("wrong answer with streak %d: expected 0/0, got %d/%d", streak, points, newStreak)
		}
	}
}

func TestAnsweringPointsStreakProgression(t *testing.T) {
	// Instant answers at streaks 0, 1, 2 multiply 1000 by 1.0, 1.1, 1.2.
	want := []int{1000, 1100, 1200}
	streak := 0
	for i, expected := range want {
		points, newStreak := AnsweringPoints(true, 0, 20, streak)
		if points != expected {
			t.Fatalf("answer %d: expected %d points, got %d", i+1, expected, points)
		}
		if newStreak != streak+1 {
			t.Fatalf("answer %d: expected streak %d, got %d", i+1, streak+1, newStreak)
		}
		streak = newStreak
	}
}

func TestAuthorPointsGuards(t *testing.T) {
	if got := AuthorPoints(0, 0); got != 0 {
		t.Fatalf("no answers should award 0, got %d", got)
	}
	if got := AuthorPoints(1, 0); got != 0 {
		t.Fatalf("single answer should award 0 even if correct, got %d", got)
	}
	if got := AuthorPoints(5, 5); got != 0 {
		t.Fatalf("nobody correct should award 0, got %d", got)
	}
	for _, n := range []int{2, 4, 10} {
		if got := AuthorPoints(n, 0); got != -500 {
			t.Fatalf("everyone correct (n=%d) should cost 500, got %d", n, got)
		}
	}
}

func TestAuthorPointsSingleSolverIsMax(t *testing.T) {
	if got := AuthorPoints(5, 4); got != 1000 {
		t.Fatalf("exactly one solver should award 1000, got %d", got)
	}
}

func TestAuthorPointsMonotonicDecay(t *testing.T) {
	for _, n := range []int{3, 6, 20} {
		prev := 1001
		for correct := 1; correct < n; correct++ {
			got := AuthorPoints(n, n-correct)
			if got > prev {
				t.Fatalf("author points rose with more solvers (n=%d, correct=%d): %d > %d", n, correct, got, prev)
			}
			prev = got
		}
	}
}

func TestProcessQuestionResults(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	players := map[string]domain.Player{
		"author": {ID: "author"},
		"fast":   {ID: "fast", Streak: 1},
		"slow":   {ID: "slow"},
		"wrong":  {ID: "wrong", Streak: 3},
		"silent": {ID: "silent", Streak: 2},
	}
	answers := map[string]domain.Answer{
		"author": {AnswerIndex: 0, Timestamp: start.Add(2 * time.Second)},
		"fast":   {AnswerIndex: 0, Timestamp: start.Add(2 * time.Second)},
		"slow":   {AnswerIndex: 0, Timestamp: start.Add(10 * time.Second)},
		"wrong":  {AnswerIndex: 1, Timestamp: start.Add(4 * time.Second)},
	}

	results := ProcessQuestionResults(answers, 0, "author", players, start, 20)

	// Distribution covers every submission, author included.
	total := 0
	for _, n := range results.AnswerDistribution {
		total += n
	}
	if total != len(answers) {
		t.Fatalf("distribution should sum to %d, got %d", len(answers), total)
	}
	if results.AnswerDistribution[0] != 3 || results.AnswerDistribution[1] != 1 {
		t.Fatalf("unexpected distribution: %v", results.AnswerDistribution)
	}

	if _, ok := results.PlayerResults["author"]; ok {
		t.Fatalf("author must not appear in player results")
	}

	fast := results.PlayerResults["fast"]
	if !fast.IsCorrect || fast.NewStreak != 2 {
		t.Fatalf("expected fast correct with streak 2, got %+v", fast)
	}
	// 2s of 20s: base 950, streak 2 multiplier 1.1 -> 1045.
	if fast.Points != 1045 {
		t.Fatalf("expected fast to earn 1045, got %d", fast.Points)
	}
	if fast.TimeToAnswer != 2.0 {
		t.Fatalf("expected fast time 2.0, got %.1f", fast.TimeToAnswer)
	}

	wrong := results.PlayerResults["wrong"]
	if wrong.IsCorrect || wrong.Points != 0 || wrong.NewStreak != 0 {
		t.Fatalf("expected wrong answer zeroed, got %+v", wrong)
	}

	silent, ok := results.PlayerResults["silent"]
	if !ok {
		t.Fatalf("non-answering player missing from results")
	}
	if silent.Points != 0 || silent.NewStreak != 0 || silent.TimeToAnswer != 20 {
		t.Fatalf("expected silent player scored as wrong at full timer, got %+v", silent)
	}

	// 4 non-author respondents (incl. silent), 2 correct: fraction 1/3.
	if want := AuthorPoints(4, 2); results.AuthorPoints != want {
		t.Fatalf("expected author points %d, got %d", want, results.AuthorPoints)
	}
}

func TestProcessQuestionResultsNobodyAnswers(t *testing.T) {
	start := time.Now()
	players := map[string]domain.Player{
		"author": {ID: "author"},
		"p1":     {ID: "p1"},
		"p2":     {ID: "p2"},
	}
	results := ProcessQuestionResults(nil, 0, "author", players, start, 15)
	if len(results.PlayerResults) != 2 {
		t.Fatalf("expected 2 synthesized results, got %d", len(results.PlayerResults))
	}
	if results.AuthorPoints != 0 {
		t.Fatalf("all-wrong question should award 0 author points, got %d", results.AuthorPoints)
	}
	if len(results.AnswerDistribution) != 0 {
		t.Fatalf("expected empty distribution, got %v", results.AnswerDistribution)
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	ids := []string{"a", "b", "c", "d", "e", "f", "g"}
	original := make([]string, len(ids))
	copy(original, ids)

	shuffled := Shuffle(rnd, ids)

	if len(shuffled) != len(ids) {
		t.Fatalf("expected %d elements, got %d", len(ids), len(shuffled))
	}
	for i, id := range original {
		if ids[i] != id {
			t.Fatalf("input mutated at %d: %v", i, ids)
		}
	}
	seen := make(map[string]bool)
	for _, id := range shuffled {
		seen[id] = true
	}
	for _, id := range original {
		if !seen[id] {
			t.Fatalf("element %q lost in shuffle", id)
		}
	}
}
