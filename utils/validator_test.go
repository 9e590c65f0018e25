package utils

import (
	"strings"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"test@test.edu":               "test@test.edu",
		"TEST@Test.Edu":               "test@test.edu",
		"  user@example.org  ":        "user@example.org",
		"Some Name <test@test.edu>":   "test@test.edu",
		"<admin@example.org>":         "admin@example.org",
		"":                            "",
	}
	for in, want := range cases {
		if got := NormalizeEmail(in); got != want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	if !ValidateEmail("researcher@uni.ac.nz") {
		t.Error("expected valid email")
	}
	for _, bad := range []string{"not-an-email", "a@b", "@example.org"} {
		if ValidateEmail(bad) {
			t.Errorf("expected %q to be invalid", bad)
		}
	}
}

func TestValidateOrcidID(t *testing.T) {
	// 0000-0002-1825-0097 is the registry's documented sample iD.
	if err := ValidateOrcidID("0000-0002-1825-0097"); err != nil {
		t.Errorf("expected valid iD, got %v", err)
	}
	if err := ValidateOrcidID(""); err != nil {
		t.Errorf("blank iD should pass, got %v", err)
	}

	err := ValidateOrcidID("not-an-orcid")
	if err == nil || !strings.Contains(err.Error(), "should be in the form") {
		t.Errorf("format error = %v", err)
	}

	err = ValidateOrcidID("0000-0002-1825-0098")
	if err == nil || !strings.Contains(err.Error(), "checksum") {
		t.Errorf("checksum error = %v", err)
	}
}
