package horosafe

import (
	"errors"
	"net"
	"strings"
	"testing"
)

func TestCheckTarget(t *testing.T) {
	// WHAT: Shape validation accepts http(s) with a host and rejects the rest.
	// WHY: The orchestrator maps these failures to 400 before any fetch.
	tests := []struct {
		url     string
		wantErr error
	}{
		{"https://example.com", nil},
		{"  http://example.com/page?q=1  ", nil},
		{"ftp://example.com/file", ErrUnsafeScheme},
		{"example.com", ErrUnsafeScheme},
		{"https://", ErrNoHost},
	}
	for _, tt := range tests {
		_, err := CheckTarget(tt.url)
		if tt.wantErr == nil && err != nil {
			t.Errorf("CheckTarget(%q) unexpected error: %v", tt.url, err)
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("CheckTarget(%q) error=%v, want %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://93.184.216.34/page", false},
		{"ftp://evil.com/data", true},
		{"javascript:alert(1)", true},
		{"http://127.0.0.1/admin", true},
		{"http://10.0.0.1/internal", true},
		{"http://192.168.1.1/api", true},
		{"http://[::1]/api", true},
		{"http://172.16.0.1/secret", true},
		{"http://0.0.0.0/", true},
	}
	for _, tt := range tests {
		err := ValidateURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error=%v, wantErr=%v", tt.url, err, tt.wantErr)
		}
	}
}

func TestAllowPrivate(t *testing.T) {
	// WHAT: AllowPrivate lets loopback through but still checks the scheme.
	// WHY: Intranet monitoring and httptest servers live on private addresses.
	if err := AllowPrivate("http://127.0.0.1:8080/"); err != nil {
		t.Errorf("loopback rejected: %v", err)
	}
	if err := AllowPrivate("file:///etc/passwd"); err == nil {
		t.Error("file scheme accepted")
	}
}

func TestLimitedReadAll(t *testing.T) {
	data := strings.Repeat("x", 100)
	got, err := LimitedReadAll(strings.NewReader(data), 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("expected 100 bytes, got %d", len(got))
	}

	_, err = LimitedReadAll(strings.NewReader(data), 50)
	if err == nil {
		t.Fatal("expected error for oversized read")
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"192.168.0.1", true},
		{"100.64.1.1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"::1", true},
	}
	for _, tt := range tests {
		ip := net.ParseIP(tt.ip)
		if ip == nil {
			t.Fatalf("failed to parse IP %q", tt.ip)
		}
		if got := isPrivateIP(ip); got != tt.private {
			t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.private)
		}
	}
}
