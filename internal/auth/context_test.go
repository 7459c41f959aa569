package auth

import (
	"context"
	"strings"
	"testing"
)

func TestWithIdentityAndFromContext(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{MemberID: 7, Timezone: "Europe/Berlin", Language: "de"})
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected Identity in context")
	}
	if got.MemberID != 7 || got.Timezone != "Europe/Berlin" || got.Language != "de" {
		t.Errorf("Identity = %+v", got)
	}
	if got.IsGuest() {
		t.Error("member reported as guest")
	}
	if MemberID(ctx) != 7 {
		t.Errorf("MemberID = %d, want 7", MemberID(ctx))
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected false for missing Identity")
	}
	if MemberID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
	if !(Identity{}).IsGuest() {
		t.Error("zero Identity should be a guest")
	}
}

func TestRequestID(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("RequestID = %q, want empty", got)
	}
	ctx := WithRequestID(context.Background(), "abc")
	if got := RequestID(ctx); got != "abc" {
		t.Errorf("RequestID = %q, want %q", got, "abc")
	}
}

func TestIssueAndCheckToken(t *testing.T) {
	token, hash, err := IssueToken(42)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if !strings.HasPrefix(token, "42.") {
		t.Errorf("token = %q, want 42. prefix", token)
	}
	if strings.Contains(hash, token) {
		t.Error("hash contains the token")
	}

	id, secret, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
	if !CheckSecret(hash, secret) {
		t.Error("secret should match its hash")
	}
	if CheckSecret(hash, secret+"x") {
		t.Error("wrong secret should not match")
	}
	if CheckSecret("", secret) {
		t.Error("empty hash should never match")
	}
}

func TestParseTokenMalformed(t *testing.T) {
	for _, tok := range []string{"", "abc", "42", "42.", "x.secret", "-1.secret", "0.secret"} {
		if _, _, err := ParseToken(tok); err != ErrMalformedToken {
			t.Errorf("ParseToken(%q) err = %v, want ErrMalformedToken", tok, err)
		}
	}
}
