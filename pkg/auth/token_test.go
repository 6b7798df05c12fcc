package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/hazelline/communitybot-backend/pkg/config"
)

func TestMintAndParseAdminToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "communitybot",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()

	payload := AdminTokenPayload{
		UserID:  42,
		GuildID: 100,
		JTI:     "admin-token-1",
	}

	token, err := MintAdminToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}

	claims, err := ParseAdminToken(cfg, token)
	if err != nil {
		t.Fatalf("parse admin token: %v", err)
	}

	if claims.UserID != payload.UserID {
		t.Fatalf("expected user_id %d, got %d", payload.UserID, claims.UserID)
	}
	if claims.GuildID != payload.GuildID {
		t.Fatalf("expected guild_id %d, got %d", payload.GuildID, claims.GuildID)
	}
	if claims.ID != payload.JTI {
		t.Fatalf("expected jti %s, got %s", payload.JTI, claims.ID)
	}

	// RegisteredClaims is embedded, so access fields directly.
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestMintAdminTokenGeneratesJTI(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "communitybot",
		ExpirationMinutes: 10,
	}

	token, err := MintAdminToken(cfg, time.Now(), AdminTokenPayload{UserID: 42, GuildID: 100})
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}

	claims, err := ParseAdminToken(cfg, token)
	if err != nil {
		t.Fatalf("parse admin token: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expected a generated jti")
	}
}

func TestParseAdminTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "communitybot",
		ExpirationMinutes: 10,
	}

	token, err := MintAdminToken(cfg, time.Now(), AdminTokenPayload{UserID: 42, GuildID: 100})
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}

	_, err = ParseAdminToken(cfg, token+"x")
	if err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAdminTokenExpired(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "communitybot",
		ExpirationMinutes: 15,
	}
	now := time.Now().Add(-time.Hour)

	token, err := MintAdminToken(cfg, now, AdminTokenPayload{UserID: 42, GuildID: 100})
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}

	_, err = ParseAdminToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAdminTokenRequiresIdentity(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "communitybot",
		ExpirationMinutes: 5,
	}

	if _, err := MintAdminToken(cfg, time.Now(), AdminTokenPayload{GuildID: 100}); err == nil {
		t.Fatal("expected missing user id error")
	}
	if _, err := MintAdminToken(cfg, time.Now(), AdminTokenPayload{UserID: 42}); err == nil {
		t.Fatal("expected missing guild id error")
	}
}
