package hierarchy

// Tone is the display emphasis for a balance: the frontend maps these to
// its colour scheme.
type Tone string

const (
	// ToneNormal is a balance matching the node type's expected sign.
	ToneNormal Tone = "normal"
	// ToneAlert is a balance on the wrong side of the expected sign:
	// a negative asset or a positive liability.
	ToneAlert Tone = "alert"
	// ToneGroup is the distinct emphasis for group nodes whose balance
	// matches the expected sign.
	ToneGroup Tone = "group"
)

// ToneFor maps (balance, nodeType, isGroup) to a display tone.
// Asset and income nodes expect a non-negative balance; liability and
// expense nodes expect a non-positive one.
func ToneFor(balance float64, nodeType string, isGroup bool) Tone {
	expected := true
	switch nodeType {
	case "liability", "expense":
		expected = balance <= 0
	default: // asset, income
		expected = balance >= 0
	}

	switch {
	case !expected:
		return ToneAlert
	case isGroup:
		return ToneGroup
	default:
		return ToneNormal
	}
}
