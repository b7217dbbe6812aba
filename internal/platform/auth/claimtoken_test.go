package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestClaimToken_RoundTrip(t *testing.T) {
	issuer := NewClaimTokenIssuer([]byte("test-secret"), 90*24*time.Hour)

	tok, err := issuer.Issue("summary-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summaryID, err := issuer.Verify(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summaryID != "summary-123" {
		t.Errorf("expected summary-123, got %s", summaryID)
	}
}

func TestClaimToken_Expired(t *testing.T) {
	issuer := NewClaimTokenIssuer([]byte("test-secret"), -time.Hour)

	tok, err := issuer.Issue("summary-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := issuer.Verify(tok); err != ErrInvalidClaimToken {
		t.Errorf("expected ErrInvalidClaimToken for expired token, got %v", err)
	}
}

func TestClaimToken_WrongSecret(t *testing.T) {
	issuer := NewClaimTokenIssuer([]byte("test-secret"), time.Hour)
	other := NewClaimTokenIssuer([]byte("other-secret"), time.Hour)

	tok, err := issuer.Issue("summary-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := other.Verify(tok); err != ErrInvalidClaimToken {
		t.Errorf("expected ErrInvalidClaimToken for foreign signature, got %v", err)
	}
}

func TestClaimToken_EmptySecretRefused(t *testing.T) {
	empty := NewClaimTokenIssuer(nil, time.Hour)

	if _, err := empty.Issue("summary-123"); err != ErrNoClaimSecret {
		t.Errorf("expected ErrNoClaimSecret on issue, got %v", err)
	}

	// A token hand-signed with an empty HMAC key must never verify either;
	// otherwise anyone could mint a linking token for any summary.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claimTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    claimTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		SummaryID: "victim-summary-id",
	}).SignedString([]byte(""))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}

	if _, err := empty.Verify(forged); err != ErrNoClaimSecret {
		t.Errorf("expected ErrNoClaimSecret on verify, got %v", err)
	}
}

func TestClaimToken_Garbage(t *testing.T) {
	issuer := NewClaimTokenIssuer([]byte("test-secret"), time.Hour)
	if _, err := issuer.Verify("not-a-token"); err != ErrInvalidClaimToken {
		t.Errorf("expected ErrInvalidClaimToken, got %v", err)
	}
}
