// utils/validator.go - Input validation
package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	orcidIDRegex  = regexp.MustCompile(`^([X\d]{4}-?){3}[X\d]{4}$`)
	nameAddrRegex = regexp.MustCompile(`^(.*<)?([^>]*)>?$`)
)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// NormalizeEmail extracts and normalizes an email from a raw data value,
// e.g. "Name <test@test.edu>" becomes "test@test.edu".
func NormalizeEmail(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = strings.ToLower(value)
	if strings.Contains(value, "<") {
		if m := nameAddrRegex.FindStringSubmatch(value); m != nil {
			return strings.TrimSpace(m[2])
		}
	}
	return value
}

// ValidateOrcidID validates an ORCID iD, both the xxxx-xxxx-xxxx-xxxx
// format and the ISO 7064 11-2 check digit.
func ValidateOrcidID(value string) error {
	if value == "" {
		return nil
	}
	if !orcidIDRegex.MatchString(value) {
		return fmt.Errorf(
			"Invalid ORCID iD %s. It should be in the form of 'xxxx-xxxx-xxxx-xxxx' where x is a digit.",
			value)
	}
	check := 0
	for _, c := range value {
		if c == '-' {
			continue
		}
		digit := int(c - '0')
		if c == 'X' {
			digit = 10
		}
		check = (2*check + digit) % 11
	}
	if check != 1 {
		return fmt.Errorf(
			"Invalid ORCID iD %s checksum. Make sure you have entered correct ORCID iD.", value)
	}
	return nil
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
