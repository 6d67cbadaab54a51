package split_test

import (
	"math"
	"testing"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/split"
)

func amounts(shares []domain.Share) []float64 {
	out := make([]float64, len(shares))
	for i, s := range shares {
		out[i] = s.Amount
	}
	return out
}

func sum(shares []domain.Share) float64 {
	total := 0.0
	for _, s := range shares {
		total += s.Amount
	}
	return total
}

func assertAmounts(t *testing.T, got []domain.Share, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d shares, got %v", len(want), amounts(got))
	}
	for i := range want {
		if math.Abs(got[i].Amount-want[i]) > 1e-9 {
			t.Fatalf("share %d: expected %v, got %v (all: %v)", i, want[i], got[i].Amount, amounts(got))
		}
	}
}

func TestSeed(t *testing.T) {
	shares := split.Seed(250)
	if len(shares) != 1 {
		t.Fatalf("expected 1 share, got %d", len(shares))
	}
	if shares[0].Amount != 250 {
		t.Errorf("expected amount 250, got %v", shares[0].Amount)
	}
	if shares[0].CategoryID != "" {
		t.Errorf("expected empty category, got %q", shares[0].CategoryID)
	}
}

func TestSeed_NonPositiveTotal(t *testing.T) {
	for _, total := range []float64{0, -10} {
		if shares := split.Seed(total); len(shares) != 0 {
			t.Errorf("Seed(%v): expected empty list, got %v", total, amounts(shares))
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"100", 100},
		{"12.50", 12.5},
		{" 3 ", 3},
		{"", 0},
		{"abc", 0},
		{"-4", -4},
		{"NaN", 0},
		{"Inf", 0},
	}
	for _, tt := range tests {
		if got := split.ParseAmount(tt.raw); got != tt.want {
			t.Errorf("ParseAmount(%q): expected %v, got %v", tt.raw, tt.want, got)
		}
	}
}

func TestSetShareAmount_LastShareAbsorbsRemainder(t *testing.T) {
	shares := []domain.Share{{Amount: 100}, {Amount: 150}}

	got := split.SetShareAmount(shares, 0, "60", 250)

	assertAmounts(t, got, []float64{60, 190})
	if s := sum(got); s != 250 {
		t.Errorf("expected sum 250, got %v", s)
	}
}

func TestSetShareAmount_EditingLastShareGrowsList(t *testing.T) {
	shares := []domain.Share{{Amount: 100}}

	got := split.SetShareAmount(shares, 0, "60", 100)

	assertAmounts(t, got, []float64{60, 40})
	if got[1].CategoryID != "" {
		t.Errorf("expected new share with empty category, got %q", got[1].CategoryID)
	}
}

func TestSetShareAmount_TrimsTrailingZeros(t *testing.T) {
	shares := []domain.Share{{Amount: 100}, {Amount: 0}}

	got := split.SetShareAmount(shares, 0, "100", 100)

	assertAmounts(t, got, []float64{100})
}

func TestSetShareAmount_EditedZeroShareNotTrimmed(t *testing.T) {
	shares := []domain.Share{{Amount: 100}, {Amount: 0}}

	got := split.SetShareAmount(shares, 1, "0", 100)

	assertAmounts(t, got, []float64{100, 0})
}

func TestSetShareAmount_InvalidInputTreatedAsZero(t *testing.T) {
	shares := []domain.Share{{Amount: 100}, {Amount: 150}}

	got := split.SetShareAmount(shares, 0, "not-a-number", 250)

	// Edited share becomes 0, last absorbs the full total, then the
	// trailing trim stops at the non-zero absorber.
	assertAmounts(t, got, []float64{0, 250})
}

func TestSetShareAmount_DoesNotMutateInput(t *testing.T) {
	shares := []domain.Share{{Amount: 100, CategoryID: "cat-a"}, {Amount: 150}}

	_ = split.SetShareAmount(shares, 0, "60", 250)

	assertAmounts(t, shares, []float64{100, 150})
	if shares[0].CategoryID != "cat-a" {
		t.Errorf("input category mutated: %q", shares[0].CategoryID)
	}
}

func TestSetShareAmount_MiddleEditKeepsOthersUntouched(t *testing.T) {
	shares := []domain.Share{
		{Amount: 50, CategoryID: "a"},
		{Amount: 100, CategoryID: "b"},
		{Amount: 100, CategoryID: "c"},
	}

	got := split.SetShareAmount(shares, 1, "80", 250)

	assertAmounts(t, got, []float64{50, 80, 120})
	if got[0].CategoryID != "a" || got[1].CategoryID != "b" || got[2].CategoryID != "c" {
		t.Errorf("categories changed: %+v", got)
	}
}

func TestSetShareAmount_OverAllocationClampsAbsorberToZero(t *testing.T) {
	shares := []domain.Share{{Amount: 100}, {Amount: 150}}

	// Editing index 0 beyond the total leaves nothing for the absorber.
	got := split.SetShareAmount(shares, 0, "300", 250)

	// The zero absorber is not the edited share, so the trailing trim
	// removes it.
	assertAmounts(t, got, []float64{300})
}

func TestAddShare(t *testing.T) {
	shares := []domain.Share{{Amount: 100}, {Amount: 100}}

	got := split.AddShare(shares, 50)
	assertAmounts(t, got, []float64{100, 100, 50})

	got = split.AddShare(shares, 0)
	assertAmounts(t, got, []float64{100, 100, 0})

	got = split.AddShare(shares, -25)
	assertAmounts(t, got, []float64{100, 100, 0})
}

func TestRemoveShare_RedistributesToLast(t *testing.T) {
	shares := []domain.Share{
		{Amount: 60, CategoryID: "groceries"},
		{Amount: 40, CategoryID: "household"},
	}

	got := split.RemoveShare(shares, 0)

	assertAmounts(t, got, []float64{100})
	if got[0].CategoryID != "household" {
		t.Errorf("expected surviving share to keep its category, got %q", got[0].CategoryID)
	}
}

func TestRemoveShare_SingleShareGuard(t *testing.T) {
	shares := []domain.Share{{Amount: 100}}

	got := split.RemoveShare(shares, 0)

	assertAmounts(t, got, []float64{100})
}

func TestRemoveShare_DoesNotMutateInput(t *testing.T) {
	shares := []domain.Share{{Amount: 60}, {Amount: 40}, {Amount: 20}}

	_ = split.RemoveShare(shares, 1)

	assertAmounts(t, shares, []float64{60, 40, 20})
}

func TestRemainingAmount(t *testing.T) {
	tests := []struct {
		name   string
		shares []domain.Share
		total  float64
		want   float64
	}{
		{"balanced", []domain.Share{{Amount: 60}, {Amount: 40}}, 100, 0},
		{"under-allocated", []domain.Share{{Amount: 60}}, 100, 40},
		{"over-allocated", []domain.Share{{Amount: 60}, {Amount: 70}}, 100, -30},
		{"empty", nil, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := split.RemainingAmount(tt.shares, tt.total); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestSplitEditingScenario walks the full form interaction: seed, edit,
// add a split, over-allocate on the last share.
func TestSplitEditingScenario(t *testing.T) {
	const total = 250.0

	shares := split.Seed(total)
	assertAmounts(t, shares, []float64{250})

	// User sets share 0 to 100 — the absorber grows in.
	shares = split.SetShareAmount(shares, 0, "100", total)
	assertAmounts(t, shares, []float64{100, 150})

	// User adds a split while balanced — defaults to zero.
	remaining := split.RemainingAmount(shares, total)
	if remaining != 0 {
		t.Fatalf("expected balanced split, remaining=%v", remaining)
	}
	shares = split.AddShare(shares, remaining)
	assertAmounts(t, shares, []float64{100, 150, 0})

	// User sets the last share to 50 — over-allocated, no growth.
	shares = split.SetShareAmount(shares, 2, "50", total)
	assertAmounts(t, shares, []float64{100, 150, 50})

	if remaining := split.RemainingAmount(shares, total); remaining != -50 {
		t.Errorf("expected remaining -50, got %v", remaining)
	}
}
