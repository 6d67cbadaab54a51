// Package split keeps a transaction's category shares consistent with a
// single total amount while the user freely edits individual shares.
//
// The convention throughout is that the last share is the "remainder
// absorber": whenever any other share changes, the last share is
// overwritten with whatever is left of the total, so the user never has
// to balance the split by hand. All functions are pure — they return a
// new slice and never mutate their input.
package split

import (
	"math"
	"strconv"
	"strings"

	"github.com/lmoreira/fintrack-api/internal/domain"
)

// Seed returns the initial share list for a transaction total: one share
// holding the full amount, with no category selected. Non-positive totals
// yield an empty list.
func Seed(total float64) []domain.Share {
	if total <= 0 {
		return []domain.Share{}
	}
	return []domain.Share{{Amount: total}}
}

// ParseAmount parses a raw form value permissively: empty or invalid
// input degrades to 0, never an error. Mirrors the numeric input field
// behaviour of the frontend.
func ParseAmount(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// SetShareAmount applies an edit of shares[index] to rawValue and
// rebalances against total.
//
// The allocated sum counts every share except the last — unless the last
// share is itself the one being edited, in which case it counts too.
// That asymmetry is what makes the last share the remainder absorber:
//   - editing a non-last share overwrites the last share with
//     max(total-allocated, 0);
//   - editing the last share appends a new trailing share when the
//     remainder is still positive.
//
// Trailing zero shares are then trimmed, but the edited share itself is
// never auto-removed. An out-of-range index returns a plain copy.
func SetShareAmount(shares []domain.Share, index int, rawValue string, total float64) []domain.Share {
	out := make([]domain.Share, len(shares))
	copy(out, shares)

	if index < 0 || index >= len(out) {
		return out
	}
	out[index].Amount = ParseAmount(rawValue)

	last := len(out) - 1
	allocated := 0.0
	for i, s := range out {
		if i == index || i != last {
			// Transient negative entries count as zero.
			allocated += math.Max(s.Amount, 0)
		}
	}
	remaining := total - allocated

	if index != last {
		if len(out) > 1 {
			out[last].Amount = math.Max(remaining, 0)
		}
	} else if remaining > 0 {
		out = append(out, domain.Share{Amount: remaining})
	}

	// Trim trailing zero shares, stopping at the edited share, a
	// non-zero share, or a single remaining share.
	for len(out) > 1 {
		tail := len(out) - 1
		if tail == index || out[tail].Amount != 0 {
			break
		}
		out = out[:tail]
	}

	return out
}

// AddShare appends a new empty-category share. It takes the current
// remaining amount (see RemainingAmount) and seeds the new share with it
// when positive, otherwise with zero.
func AddShare(shares []domain.Share, remaining float64) []domain.Share {
	out := make([]domain.Share, len(shares), len(shares)+1)
	copy(out, shares)

	amount := 0.0
	if remaining > 0 {
		amount = remaining
	}
	return append(out, domain.Share{Amount: amount})
}

// RemoveShare removes the share at index and adds its amount onto the new
// last share, so the split total is redistributed rather than shrunk.
// Removing the only share is a no-op; the UI disables that action, this
// guard just makes the contract explicit.
func RemoveShare(shares []domain.Share, index int) []domain.Share {
	if len(shares) <= 1 || index < 0 || index >= len(shares) {
		return shares
	}

	removed := shares[index].Amount
	out := make([]domain.Share, 0, len(shares)-1)
	out = append(out, shares[:index]...)
	out = append(out, shares[index+1:]...)
	out[len(out)-1].Amount += removed
	return out
}

// RemainingAmount is total minus the sum of all share amounts. Positive
// means under-allocated, negative over-allocated, zero balanced. The UI
// uses it to pick the default for AddShare and to render the imbalance
// warning; the service layer uses it to reject unbalanced submissions.
func RemainingAmount(shares []domain.Share, total float64) float64 {
	sum := 0.0
	for _, s := range shares {
		sum += s.Amount
	}
	return total - sum
}
