package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestServiceErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		isConf  bool
		isProv  bool
		isValid bool
	}{
		{"configuration", NewConfigurationError("start_checkout", fmt.Errorf("no key")), true, false, false},
		{"provider", NewProviderError("lookup_session", fmt.Errorf("timeout")), false, true, false},
		{"validation", NewValidationError("start_checkout", fmt.Errorf("bad email")), false, false, true},
		{"plain error", fmt.Errorf("boom"), false, false, false},
		{"nil", nil, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConfigurationError(tt.err); got != tt.isConf {
				t.Errorf("IsConfigurationError = %v, want %v", got, tt.isConf)
			}
			if got := IsProviderError(tt.err); got != tt.isProv {
				t.Errorf("IsProviderError = %v, want %v", got, tt.isProv)
			}
			if got := IsValidationError(tt.err); got != tt.isValid {
				t.Errorf("IsValidationError = %v, want %v", got, tt.isValid)
			}
		})
	}
}

func TestServiceErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewProviderError("price_history", cause)

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause not reachable through errors.Is")
	}
	if !stderrors.Is(err, ErrProvider) {
		t.Error("sentinel not reachable through errors.Is")
	}

	var svcErr *ServiceError
	if !stderrors.As(err, &svcErr) {
		t.Fatal("errors.As failed")
	}
	if svcErr.Op != "price_history" {
		t.Errorf("Op = %q", svcErr.Op)
	}
}

func TestServiceErrorMessage(t *testing.T) {
	err := NewConfigurationError("open_management_portal", fmt.Errorf("stripe key missing"))
	msg := err.Error()
	if !strings.Contains(msg, "open_management_portal") || !strings.Contains(msg, "stripe key missing") {
		t.Errorf("unexpected message %q", msg)
	}

	bare := &ServiceError{Type: ErrorTypeValidation, Op: "login"}
	if !strings.Contains(bare.Error(), "validation") {
		t.Errorf("bare error message %q should name the type", bare.Error())
	}
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewValidationError("login", fmt.Errorf("bad email")))
	if !IsValidationError(err) {
		t.Error("classification lost through fmt.Errorf wrapping")
	}
}
