package chat

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrNotAmount     = errors.New("not an amount")
	ErrAmountTooLow  = errors.New("amount below minimum")
	ErrAmountTooHigh = errors.New("amount above maximum")
)

var (
	phonePattern  = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
)

// skipPhrases are free-text answers treated as "skip" on optional steps.
var skipPhrases = map[string]struct{}{
	"skip":  {},
	"no":    {},
	"none":  {},
	"later": {},
	"-":     {},
	"venda": {},
	"illa":  {},
}

func digitsOf(s string) string {
	var sb strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

// NormalizePhone strips non-digit characters and prepends "+".
func NormalizePhone(phone string) string {
	digits := digitsOf(phone)
	if len(digits) > 0 {
		digits = "+" + digits
	}
	return digits
}

// IsValidPhone checks if the input looks like a valid phone number (10-15 digits).
func IsValidPhone(phone string) bool {
	digits := digitsOf(phone)
	if len(digits) < 10 {
		return false
	}
	return phonePattern.MatchString("+" + digits)
}

// MatchNumberToOption converts a number string ("1", "2", ...) to the
// corresponding option id. Returns empty string if no match.
func MatchNumberToOption(text string, options []Button) string {
	num, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || num < 1 || num > len(options) {
		return ""
	}
	return options[num-1].ID
}

// IsSkip reports whether the message asks to skip an optional step.
func IsSkip(in IncomingMessage) bool {
	if in.Selection != nil {
		return in.Selection.Is(ActionNav, NavSkip)
	}
	if in.Type != MessageText {
		return false
	}
	_, ok := skipPhrases[strings.ToLower(in.Content())]
	return ok
}

// Truncate cuts text to at most max runes.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}

// ParseAmount reads a rupee amount such as "500", "₹1,200", "Rs. 750/-" or "1.5k"
// and checks it against [min, max].
func ParseAmount(text string, min, max int64) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(s, "rs.")
	s = strings.TrimPrefix(s, "rs")
	s = strings.TrimPrefix(s, "inr")
	s = strings.TrimSuffix(s, "/-")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	multiplier := 1.0
	if strings.HasSuffix(s, "k") {
		multiplier = 1000
		s = strings.TrimSpace(strings.TrimSuffix(s, "k"))
	}
	if !amountPattern.MatchString(s) {
		return 0, ErrNotAmount
	}

	f, err := strconv.ParseFloat(s, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, ErrAmountTooHigh
	}
	if err != nil {
		return 0, ErrNotAmount
	}

	// bounded before the int64 conversion
	v := math.Round(f * multiplier)
	if v > float64(max) {
		return 0, ErrAmountTooHigh
	}
	amount := int64(v)
	if amount < min {
		return 0, ErrAmountTooLow
	}
	return amount, nil
}
