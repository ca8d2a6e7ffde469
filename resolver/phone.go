package resolver

import "strings"

// PhoneFormat holds the national numbering rules used to complete local numbers.
type PhoneFormat struct {
	CountryCode    string
	MobilePrefix   string
	MinLocalDigits int
}

// DefaultPhoneFormat is Chile: country code 56, mobile numbers 9XXXXXXXX.
var DefaultPhoneFormat = PhoneFormat{
	CountryCode:    "56",
	MobilePrefix:   "9",
	MinLocalDigits: 9,
}

// NormalizePhone converts a phone number to a compact international form.
// It returns "" when the input has no digits.
func NormalizePhone(raw string, f PhoneFormat) string {
	var b strings.Builder

	for _, r := range raw {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	hasPlus := strings.HasPrefix(cleaned, "+")

	digits := strings.ReplaceAll(cleaned, "+", "")
	if digits == "" {
		return ""
	}

	switch {
	case hasPlus:
		return "+" + digits
	case strings.HasPrefix(digits, "00") && len(digits) > 2:
		return "+" + digits[2:]
	case f.CountryCode != "" && strings.HasPrefix(digits, f.CountryCode):
		return "+" + digits
	case f.MobilePrefix != "" && strings.HasPrefix(digits, f.MobilePrefix) && len(digits) >= f.MinLocalDigits:
		return "+" + f.CountryCode + digits
	default:
		return "+" + digits
	}
}
