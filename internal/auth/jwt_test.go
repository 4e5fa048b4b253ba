package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/mmynk/signin/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	member := &models.Member{ID: "m1", Name: "alice", Role: models.Role{Capabilities: models.Capabilities{Mentor: true}}}

	token, err := m.Generate(member)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.MemberID != "m1" {
		t.Errorf("MemberID = %q, want m1", claims.MemberID)
	}
	if !claims.Capabilities.Mentor || claims.Capabilities.Admin {
		t.Errorf("Capabilities = %+v", claims.Capabilities)
	}
}

func TestJWTRejects(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	member := &models.Member{ID: "m1"}

	other, err := NewJWTManager("other-secret", time.Hour).Generate(member)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	expired, err := NewJWTManager("test-secret", -time.Minute).Generate(member)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", other},
		{"expired", expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
