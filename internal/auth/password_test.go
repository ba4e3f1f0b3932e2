package auth

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("unexpected hash format %q", hash)
	}

	if !CheckPasswordHash("correct horse battery", hash) {
		t.Error("matching password rejected")
	}
	if CheckPasswordHash("wrong password", hash) {
		t.Error("wrong password accepted")
	}
	if CheckPasswordHash("correct horse battery", "not-a-hash") {
		t.Error("malformed hash accepted")
	}
}

func TestConstantTimeEquals(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"secret", "secret", true},
		{"", "", true},
		{"secret", "Secret", false},
		{"secret", "secret ", false},
		{"secret", "", false},
		{"", "secret", false},
	}
	for _, tt := range tests {
		if got := ConstantTimeEquals(tt.a, tt.b); got != tt.want {
			t.Errorf("ConstantTimeEquals(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestValidatePasswordComplexity(t *testing.T) {
	if err := ValidatePasswordComplexity("short"); err == nil {
		t.Error("short password accepted")
	}
	if err := ValidatePasswordComplexity("long enough password"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
}
