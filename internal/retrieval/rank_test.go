package retrieval

import (
	"errors"
	"math"
	"testing"

	"github.com/54b3r/msgqa-go/internal/feed"
)

// vm builds a VectorizedMessage with the given ID and vector.
func vm(id string, vector ...float32) VectorizedMessage {
	return VectorizedMessage{
		Message: feed.Message{ID: id},
		Vector:  vector,
	}
}

// ---------------------------------------------------------------------------
// CosineSimilarity
// ---------------------------------------------------------------------------

func TestCosineSimilarity_Symmetry(t *testing.T) {
	t.Parallel()

	a := []float32{0.3, -1.2, 4.5}
	b := []float32{2.0, 0.1, -0.7}

	ab, err := CosineSimilarity(a, b)
	if err != nil {
		t.Fatalf("CosineSimilarity(a, b): %v", err)
	}
	ba, err := CosineSimilarity(b, a)
	if err != nil {
		t.Fatalf("CosineSimilarity(b, a): %v", err)
	}

	if math.Abs(ab-ba) > 1e-12 {
		t.Errorf("similarity is not symmetric: %v vs %v", ab, ba)
	}
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	t.Parallel()

	a := []float32{1.5, 2.5, -3.5, 0.25}
	got, err := CosineSimilarity(a, a)
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("cos(a, a): want 1.0, got %v", got)
	}
}

func TestCosineSimilarity_ZeroNormIsZero(t *testing.T) {
	t.Parallel()

	zero := []float32{0, 0, 0}
	other := []float32{1, 2, 3}

	for name, pair := range map[string][2][]float32{
		"zero first":  {zero, other},
		"zero second": {other, zero},
		"both zero":   {zero, zero},
	} {
		got, err := CosineSimilarity(pair[0], pair[1])
		if err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
			continue
		}
		if got != 0 {
			t.Errorf("%s: want 0.0, got %v", name, got)
		}
		if math.IsNaN(got) {
			t.Errorf("%s: got NaN", name)
		}
	}
}

func TestCosineSimilarity_LengthMismatch(t *testing.T) {
	t.Parallel()

	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	if !errors.Is(err, ErrVectorLength) {
		t.Fatalf("want ErrVectorLength, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// SelectTopK
// ---------------------------------------------------------------------------

func TestSelectTopK_Empty(t *testing.T) {
	t.Parallel()

	got, err := SelectTopK([]float32{1, 0}, nil, 5)
	if err != nil {
		t.Fatalf("SelectTopK: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("want empty result, got %d entries", len(got))
	}
}

func TestSelectTopK_KLargerThanCandidates(t *testing.T) {
	t.Parallel()

	candidates := []VectorizedMessage{
		vm("low", 0.1, 1.0),
		vm("high", 1.0, 0.0),
	}

	got, err := SelectTopK([]float32{1, 0}, candidates, 10)
	if err != nil {
		t.Fatalf("SelectTopK: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want all 2 candidates, got %d", len(got))
	}
	if got[0].Message.ID != "high" || got[1].Message.ID != "low" {
		t.Errorf("want [high low], got [%s %s]", got[0].Message.ID, got[1].Message.ID)
	}
}

func TestSelectTopK_StableOnTies(t *testing.T) {
	t.Parallel()

	// All candidates identical to the query — exact score ties across the board.
	candidates := []VectorizedMessage{
		vm("first", 1, 0),
		vm("second", 1, 0),
		vm("third", 1, 0),
	}

	got, err := SelectTopK([]float32{1, 0}, candidates, 3)
	if err != nil {
		t.Fatalf("SelectTopK: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if got[i].Message.ID != id {
			t.Errorf("position %d: want %s, got %s (tie order not stable)", i, id, got[i].Message.ID)
		}
	}
}

// TestSelectTopK_RankingScenario pins the reference ranking: query [1,0]
// against embeddings [1,0], [0,1], [0.9,0.1] with k=2 must select the exact
// match first, the near match second, and exclude the orthogonal vector.
func TestSelectTopK_RankingScenario(t *testing.T) {
	t.Parallel()

	candidates := []VectorizedMessage{
		vm("record1", 1, 0),
		vm("record2", 0, 1),
		vm("record3", 0.9, 0.1),
	}

	got, err := SelectTopK([]float32{1, 0}, candidates, 2)
	if err != nil {
		t.Fatalf("SelectTopK: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 results, got %d", len(got))
	}
	if got[0].Message.ID != "record1" {
		t.Errorf("rank 1: want record1 (sim=1.0), got %s", got[0].Message.ID)
	}
	if got[1].Message.ID != "record3" {
		t.Errorf("rank 2: want record3 (sim≈0.994), got %s", got[1].Message.ID)
	}

	sim, err := CosineSimilarity([]float32{1, 0}, got[1].Vector)
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	if math.Abs(sim-0.994) > 0.001 {
		t.Errorf("record3 similarity: want ≈0.994, got %v", sim)
	}
}

func TestSelectTopK_LengthMismatchFails(t *testing.T) {
	t.Parallel()

	candidates := []VectorizedMessage{
		vm("ok", 1, 0),
		vm("bad", 1, 0, 0),
	}

	_, err := SelectTopK([]float32{1, 0}, candidates, 2)
	if !errors.Is(err, ErrVectorLength) {
		t.Fatalf("want ErrVectorLength, got %v", err)
	}
}
