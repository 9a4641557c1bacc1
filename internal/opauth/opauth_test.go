package opauth

import (
	"testing"
	"time"
)

func newTestService() *Service {
	return NewService(Config{
		JWTSecret:     "test-secret",
		TokenDuration: time.Hour,
		BCryptCost:    4, // minimum cost, fast for tests
	})
}

func TestHashAndComparePassword(t *testing.T) {
	svc := newTestService()

	hash, err := svc.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "hunter2" {
		t.Error("Expected hash to differ from plaintext")
	}

	if err := svc.ComparePassword(hash, "hunter2"); err != nil {
		t.Errorf("Expected matching password to compare cleanly: %v", err)
	}
	if err := svc.ComparePassword(hash, "wrong"); err == nil {
		t.Error("Expected mismatched password to fail")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService()

	token, err := svc.GenerateToken("jo", RoleObserver)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Username != "jo" {
		t.Errorf("Expected username jo, got %s", claims.Username)
	}
	if claims.Role != RoleObserver {
		t.Errorf("Expected role observer, got %s", claims.Role)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestService()
	other := NewService(Config{JWTSecret: "different-secret"})

	token, err := svc.GenerateToken("jo", RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Error("Expected token signed with another secret to be rejected")
	}
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		name     string
		userRole string
		required string
		want     bool
	}{
		{"admin has observer", RoleAdmin, RoleObserver, true},
		{"admin has viewer", RoleAdmin, RoleViewer, true},
		{"observer lacks admin", RoleObserver, RoleAdmin, false},
		{"viewer has viewer", RoleViewer, RoleViewer, true},
		{"unknown role denied", "launch-director", RoleViewer, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasRole(tt.userRole, tt.required); got != tt.want {
				t.Errorf("HasRole(%s, %s) = %v, want %v", tt.userRole, tt.required, got, tt.want)
			}
		})
	}
}

func TestRolePredicates(t *testing.T) {
	if !CanCommandMotion(RoleObserver) {
		t.Error("Expected observer to command motion")
	}
	if CanCommandMotion(RoleViewer) {
		t.Error("Expected viewer not to command motion")
	}
	if !CanStop(RoleAdmin) {
		t.Error("Expected admin to stop")
	}
	if CanStop(RoleObserver) {
		t.Error("Expected observer not to stop")
	}
}
