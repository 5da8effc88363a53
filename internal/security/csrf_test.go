package security

import (
	"strings"
	"testing"
)

func TestCSRFTokenRoundTrip(t *testing.T) {
	secret, err := MintCSRFSecret()
	if err != nil {
		t.Fatalf("mint secret: %v", err)
	}
	token, err := IssueCSRFToken(secret)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if !VerifyCSRFToken(secret, token) {
		t.Fatal("token issued from secret must verify")
	}
}

func TestCSRFTokenRejectedForDifferentSecret(t *testing.T) {
	secretA, _ := MintCSRFSecret()
	secretB, _ := MintCSRFSecret()
	token, err := IssueCSRFToken(secretA)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if VerifyCSRFToken(secretB, token) {
		t.Fatal("token derived from another secret must not verify")
	}
}

func TestCSRFTokensAreNotDeterministic(t *testing.T) {
	secret, _ := MintCSRFSecret()
	first, err := IssueCSRFToken(secret)
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	second, err := IssueCSRFToken(secret)
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	if first == second {
		t.Fatal("two issuances for the same secret should differ")
	}
	// Both remain valid: tokens are not single-use.
	if !VerifyCSRFToken(secret, first) || !VerifyCSRFToken(secret, second) {
		t.Fatal("both tokens must verify against the secret")
	}
}

func TestVerifyCSRFTokenRejectsMalformedInput(t *testing.T) {
	secret, _ := MintCSRFSecret()
	valid, _ := IssueCSRFToken(secret)
	cases := []string{
		"",
		"no-dot",
		"!!!.mac",
		"c2FsdA.!!!",
		strings.Repeat("A", 200),
		valid + "x",
	}
	for _, token := range cases {
		if VerifyCSRFToken(secret, token) {
			t.Fatalf("malformed token %q must not verify", token)
		}
	}
	if VerifyCSRFToken("", valid) {
		t.Fatal("empty secret must never verify")
	}
}

func TestMintCSRFSecretIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for range 32 {
		s, err := MintCSRFSecret()
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		if seen[s] {
			t.Fatal("duplicate secret minted")
		}
		seen[s] = true
	}
}
