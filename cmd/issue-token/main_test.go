package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/auth"
	"github.com/angelmondragon/wavepick-backend/pkg/config"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "wavepick", ExpirationMinutes: 480}

func TestIssueMintsSystemTokenByDefault(t *testing.T) {
	var out bytes.Buffer
	now := time.Now().UTC()
	if err := issue([]string{"-tenant", "7", "-user", "900", "-minutes", "15"}, testJWT, now, &out); err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := auth.ParseAccessToken(testJWT, strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.TenantID != 7 || claims.UserID != 900 || claims.Role != enums.OperatorRoleSystem {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if got := claims.ExpiresAt.Time.Sub(now); got > 15*time.Minute+time.Second || got < 14*time.Minute {
		t.Fatalf("expected 15 minute lifetime, got %s", got)
	}
}

func TestIssueRejectsBadInput(t *testing.T) {
	cases := map[string][]string{
		"unknown role":     {"-tenant", "7", "-user", "1", "-role", "forklift"},
		"missing tenant":   {"-user", "1"},
		"negative minutes": {"-tenant", "7", "-user", "1", "-minutes", "-5"},
		"unknown flag":     {"-warehouse", "3"},
	}
	for name, args := range cases {
		var out bytes.Buffer
		if err := issue(args, testJWT, time.Now(), &out); err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if out.Len() != 0 {
			t.Fatalf("%s: nothing should be written on error", name)
		}
	}
}
