package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/farellandr/homerental/internal/models"
)

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name string
		p    Principal
		want bool
	}{
		{"admin role", Principal{Role: models.RoleAdmin}, true},
		{"superuser tenant", Principal{Role: models.RoleTenant, IsSuperuser: true}, true},
		{"owner", Principal{Role: models.RoleOwner}, false},
		{"tenant", Principal{Role: models.RoleTenant}, false},
		{"unknown role", Principal{Role: models.Role("GUEST")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAdmin(tt.p); got != tt.want {
				t.Errorf("IsAdmin = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanManage(t *testing.T) {
	ownerID := uuid.New()
	if !CanManage(Principal{ID: ownerID, Role: models.RoleOwner}, ownerID) {
		t.Error("owner should manage own listing")
	}
	if CanManage(Principal{ID: uuid.New(), Role: models.RoleOwner}, ownerID) {
		t.Error("other owner must not manage listing")
	}
	if CanManage(Principal{ID: ownerID, Role: models.RoleTenant}, ownerID) {
		t.Error("tenant must not manage listing even with matching id")
	}
	if !CanManage(Principal{ID: uuid.New(), Role: models.RoleAdmin}, ownerID) {
		t.Error("admin should manage any listing")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	id := uuid.New()
	token, err := IssueToken("secret", id, "OWNER", time.Now())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	got, err := ParseToken("secret", token)
	if err != nil || got != id {
		t.Fatalf("ParseToken = %v, %v; want %v", got, err, id)
	}
	if _, err := ParseToken("other", token); err != ErrInvalidToken {
		t.Fatalf("wrong secret: got %v", err)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := IssueToken("secret", uuid.New(), "TENANT", time.Now().Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := ParseToken("secret", token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
