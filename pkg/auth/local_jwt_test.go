package auth

import (
	"testing"
	"time"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "Bearer token", header: "Bearer abc.def", want: "abc.def"},
		{name: "Lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "Empty header", header: "", wantErr: true},
		{name: "Wrong scheme", header: "Basic abc", wantErr: true},
		{name: "Missing token", header: "Bearer   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractToken(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.header)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGenerateAndVerifyAccessToken(t *testing.T) {
	a, err := NewLocalJWTAuth("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("Failed to create auth: %v", err)
	}

	token, err := a.GenerateAccessToken("user-1", "lead@gdg.dev", "admin")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	user, err := a.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("Failed to verify token: %v", err)
	}
	if user.ID != "user-1" || user.Role != "admin" || user.Email != "lead@gdg.dev" {
		t.Errorf("Unexpected user: %+v", user)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	issuer, _ := NewLocalJWTAuth("secret-a", time.Minute)
	verifier, _ := NewLocalJWTAuth("secret-b", time.Minute)

	token, err := issuer.GenerateAccessToken("user-1", "", "user")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if _, err := verifier.VerifyAccessToken(token); err == nil {
		t.Error("Expected verification with a different secret to fail")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	a, _ := NewLocalJWTAuth("test-secret", -time.Minute)

	token, err := a.GenerateAccessToken("user-1", "", "user")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if _, err := a.VerifyAccessToken(token); err == nil {
		t.Error("Expected expired token to be rejected")
	}
}

func TestNewLocalJWTAuthRequiresSecret(t *testing.T) {
	if _, err := NewLocalJWTAuth("", 0); err == nil {
		t.Error("Expected error for empty secret")
	}
}
