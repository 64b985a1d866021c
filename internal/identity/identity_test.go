package identity_test

import (
	"testing"

	"codejudge/internal/identity"
)

func TestIdentity_IssueAndValidate(t *testing.T) {
	id := identity.NewIdentity("test-secret")

	tok, err := id.IssueToken("ada")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	username, err := id.UsernameFromToken(tok)
	if err != nil {
		t.Fatalf("UsernameFromToken: %v", err)
	}
	if username != "ada" {
		t.Fatalf("username = %q, want ada", username)
	}
}

func TestIdentity_RejectsForeignSecret(t *testing.T) {
	signer := identity.NewIdentity("secret-a")
	verifier := identity.NewIdentity("secret-b")

	tok, err := signer.IssueToken("ada")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := verifier.UsernameFromToken(tok); err == nil {
		t.Fatal("expected token signed with a different secret to be rejected")
	}
}

func TestIdentity_RejectsGarbage(t *testing.T) {
	id := identity.NewIdentity("secret")
	if _, err := id.UsernameFromToken("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestCredentials_HashAndVerify(t *testing.T) {
	creds := identity.NewCredentials()

	hash, err := creds.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !creds.Verify(hash, "hunter2") {
		t.Fatal("Verify should accept the original password")
	}
	if creds.Verify(hash, "wrong") {
		t.Fatal("Verify should reject a wrong password")
	}
}
