package corpus

import "strings"

// NormalizeHTS keeps digits and dots from an HTS number, dropping everything
// else, and strips trailing dots. Returns "" for input with no digits.
func NormalizeHTS(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	normalized := strings.TrimRight(b.String(), ".")
	if strings.Trim(normalized, ".") == "" {
		return ""
	}
	return normalized
}

// FormatHTS formats an HTS number in canonical dotted form by digit count:
// 10+ digits -> XXXX.XX.XX.XX, 8 -> XXXX.XX.XX, 6 -> XXXX.XX, 4 -> XXXX.
// Shorter inputs are returned as bare digits.
func FormatHTS(raw string) string {
	digits := htsDigits(raw)
	switch {
	case len(digits) >= 10:
		return digits[:4] + "." + digits[4:6] + "." + digits[6:8] + "." + digits[8:10]
	case len(digits) >= 8:
		return digits[:4] + "." + digits[4:6] + "." + digits[6:8]
	case len(digits) >= 6:
		return digits[:4] + "." + digits[4:6]
	case len(digits) >= 4:
		return digits[:4]
	default:
		return digits
	}
}

// AncestorHTSCodes returns the ancestor codes of an HTS number, deepest
// first, excluding the code itself: a 10-digit statistical suffix has
// 8-, 6- and 4-digit ancestors.
func AncestorHTSCodes(raw string) []string {
	digits := htsDigits(raw)
	var ancestors []string
	if len(digits) >= 10 {
		ancestors = append(ancestors, FormatHTS(digits[:8]))
	}
	if len(digits) >= 8 {
		ancestors = append(ancestors, FormatHTS(digits[:6]))
	}
	if len(digits) >= 6 {
		ancestors = append(ancestors, FormatHTS(digits[:4]))
	}
	return ancestors
}

func htsDigits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
