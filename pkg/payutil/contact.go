package payutil

import (
	"regexp"
	"strings"
)

var (
	emailRegexp       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	koreanPhoneRegexp = regexp.MustCompile(`^01[0-9][-\s]?[0-9]{3,4}[-\s]?[0-9]{4}$`)
	nonDigitRegexp    = regexp.MustCompile(`\D`)
)

func ValidateEmail(email string) bool {
	return emailRegexp.MatchString(email)
}

// ValidateKoreanPhone accepts mobile numbers such as 010-1234-5678,
// 01012345678 and 010 1234 5678.
func ValidateKoreanPhone(phone string) bool {
	return koreanPhoneRegexp.MatchString(phone)
}

// MaskCardNumber keeps the first and last four digits.
func MaskCardNumber(cardNumber string) string {
	cleaned := nonDigitRegexp.ReplaceAllString(cardNumber, "")
	if len(cleaned) < 8 {
		return strings.Repeat("*", len(cleaned))
	}
	first4 := cleaned[:4]
	last4 := cleaned[len(cleaned)-4:]
	middle := strings.Repeat("*", len(cleaned)-8)

	head := middle
	tail := ""
	if len(middle) > 4 {
		head, tail = middle[:4], middle[4:]
	}
	if tail == "" {
		tail = "****"
	}
	return first4 + "-" + head + "-" + tail + "-" + last4
}

var cardFields = []string{"cardNumber", "card_number", "pan"}

// MaskPaymentDetails returns a copy of details that is safe to log.
func MaskPaymentDetails(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	masked := make(map[string]any, len(details))
	for k, v := range details {
		masked[k] = v
	}
	for _, field := range cardFields {
		if s, ok := masked[field].(string); ok {
			masked[field] = MaskCardNumber(s)
		}
	}
	return masked
}
