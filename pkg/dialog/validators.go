package dialog

import (
	"regexp"
	"strconv"
	"strings"
)

// Validation helpers for spoken caller input. Telephony recognition
// mangles punctuation and inserts filler words, so these extract rather
// than reject.

var (
	nonDigitRe  = regexp.MustCompile(`[^0-9]`)
	emailRe     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	alnumRunRe  = regexp.MustCompile(`\b[A-Z0-9]{4,}\b`)
	memberIDRe  = regexp.MustCompile(`[^A-Z0-9\-]`)
	zipRe       = regexp.MustCompile(`\b(\d{5})(-\d{4})?\b`)
	anyDigitsRe = regexp.MustCompile(`\d+`)
)

// ValidPhone normalizes a spoken phone number to 555-123-4567 form.
// Accepts 10 digits, or 11 digits with a leading 1.
func ValidPhone(input string) (string, bool) {
	digits := nonDigitRe.ReplaceAllString(input, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", false
	}
	return digits[:3] + "-" + digits[3:6] + "-" + digits[6:], true
}

// ValidEmail lowercases and validates an email address.
func ValidEmail(input string) (string, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(input))
	if !emailRe.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}

// ValidZip validates a US ZIP or ZIP+4.
func ValidZip(input string) (string, bool) {
	digits := nonDigitRe.ReplaceAllString(input, "")
	switch len(digits) {
	case 5:
		return digits, true
	case 9:
		return digits[:5] + "-" + digits[5:], true
	}
	return "", false
}

// ValidMemberID strips filler words and extracts an insurance member ID.
// Most member IDs are at least 5 characters.
func ValidMemberID(input string) (string, bool) {
	cleaned := strings.ToUpper(input)
	for _, word := range []string{"MEMBER", "ID", "NUMBER", "IT IS", "IT'S", "IS", "MY"} {
		cleaned = strings.ReplaceAll(cleaned, word, "")
	}
	cleaned = strings.TrimSpace(memberIDRe.ReplaceAllString(cleaned, ""))
	if len(cleaned) < 5 {
		return "", false
	}
	return cleaned, true
}

// ExtractMemberID looks for any plausible alphanumeric run after strict
// validation fails. Used once the retry budget is exhausted. A run must
// contain a digit, otherwise ordinary words would qualify.
func ExtractMemberID(input string) (string, bool) {
	upper := strings.ToUpper(input)
	for _, word := range []string{"MY", "MEMBER", "ID", "NUMBER", "IT IS", "IT'S", "IS", "THE"} {
		upper = strings.ReplaceAll(upper, word, " ")
	}
	for _, run := range alnumRunRe.FindAllString(upper, -1) {
		if strings.ContainsAny(run, "0123456789") {
			return run, true
		}
	}
	return "", false
}

var wordNumbers = map[string]int{
	"one": 1, "first": 1,
	"two": 2, "second": 2,
	"three": 3, "third": 3,
	"four": 4, "fourth": 4,
	"five": 5, "fifth": 5,
	"six": 6, "sixth": 6,
	"seven": 7, "seventh": 7,
	"eight": 8, "eighth": 8,
	"nine": 9, "ninth": 9,
	"ten": 10, "tenth": 10,
}

// SpokenNumber extracts a small number from speech, handling both digits
// ("3") and words ("number three", "the third one"). Words are scanned in
// input order so "the third one" reads as 3, not the trailing pronoun.
func SpokenNumber(input string) (int, bool) {
	trimmed := strings.TrimSpace(input)
	if n, err := strconv.Atoi(trimmed); err == nil {
		return n, true
	}

	for _, token := range strings.Fields(strings.ToLower(trimmed)) {
		if n, ok := wordNumbers[strings.Trim(token, ".,!?")]; ok {
			return n, true
		}
	}

	if m := anyDigitsRe.FindString(input); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

// ExtractZip pulls a ZIP code out of free-form address text, returning
// the remaining text with the ZIP removed.
func ExtractZip(text string) (zip, rest string) {
	m := zipRe.FindStringSubmatch(text)
	if m == nil {
		return "", text
	}
	return m[1], strings.TrimSpace(strings.Replace(text, m[0], "", 1))
}

func containsWord(s, word string) bool {
	return strings.Contains(" "+s+" ", " "+word+" ")
}
