package signing

import (
	"net/url"
	"strconv"
	"testing"
	"time"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	s := New("image-signing-secret")
	exp := time.Now().Add(time.Hour)
	signed := s.Sign("https://cdn.example.com/pages/b1/7.png", "user-1", exp)

	if !s.Verify(signed.URL, signed.UID, signed.Exp, signed.Sig) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerify_Expired(t *testing.T) {
	s := New("image-signing-secret")
	signed := s.Sign("https://cdn.example.com/pages/b1/7.png", "user-1", time.Now().Add(-time.Minute))
	if s.Verify(signed.URL, signed.UID, signed.Exp, signed.Sig) {
		t.Fatal("expected expired signature to fail")
	}
}

func TestVerify_WrongUser(t *testing.T) {
	s := New("image-signing-secret")
	signed := s.Sign("https://cdn.example.com/pages/b1/7.png", "user-1", time.Now().Add(time.Hour))
	if s.Verify(signed.URL, "user-2", signed.Exp, signed.Sig) {
		t.Fatal("expected signature for another user to fail")
	}
}

func TestBuildAndExtractSigned(t *testing.T) {
	s := New("image-signing-secret")
	signed := s.Sign("https://cdn.example.com/pages/b1/7.png", "user-1", time.Now().Add(time.Hour))

	full, err := BuildSignedURL("https://images.example.com/proxy", signed)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	u, err := url.Parse(full)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rawURL, uid, exp, sig, err := ExtractSigned(u.Query())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rawURL != signed.URL || uid != signed.UID || sig != signed.Sig {
		t.Fatalf("round trip mismatch: %q %q %q", rawURL, uid, sig)
	}
	if strconv.FormatInt(exp, 10) != strconv.FormatInt(signed.Exp, 10) {
		t.Fatalf("exp mismatch: %d vs %d", exp, signed.Exp)
	}
}

func TestExtractSigned_MissingParams(t *testing.T) {
	if _, _, _, _, err := ExtractSigned(url.Values{}); err == nil {
		t.Fatal("expected error for missing params")
	}
}
