package domain

// ============================================================
// Tree views — the rendered account/category forests the frontend
// draws as indented lists
// ============================================================

// AccountTreeRow is one row of a rendered account tree.
type AccountTreeRow struct {
	Account Account `json:"account"`
	Balance float64 `json:"balance"`
	Level   int     `json:"level"`
	Tone    string  `json:"tone"`
}

// CategoryTreeRow is one row of a rendered category tree.
type CategoryTreeRow struct {
	Category Category `json:"category"`
	Balance  float64  `json:"balance"`
	Level    int      `json:"level"`
	Tone     string   `json:"tone"`
}

// ============================================================
// Split preview — one reducer step of the split editing form
// ============================================================

// Split preview operations.
const (
	SplitOpSeed   = "seed"
	SplitOpSet    = "set"
	SplitOpAdd    = "add"
	SplitOpRemove = "remove"
)

// SplitPreviewRequest carries the current form state plus one edit.
type SplitPreviewRequest struct {
	Total  float64 `json:"total"`
	Shares []Share `json:"shares"`
	Op     string  `json:"op"`              // seed, set, add, remove
	Index  int     `json:"index"`           // set, remove
	Value  string  `json:"value,omitempty"` // set: raw input field text
}

// SplitPreviewResponse is the rebalanced form state.
type SplitPreviewResponse struct {
	Shares    []Share `json:"shares"`
	Remaining float64 `json:"remaining"`
	Balanced  bool    `json:"balanced"`
}
