package member

import "testing"

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0xABCDEFabcdef0123456789abcdef0123456789AB", "0xabcdefabcdef0123456789abcdef0123456789ab"},
		{"  0x1111111111111111111111111111111111111111 ", "0x1111111111111111111111111111111111111111"},
		{"0x123", ""},
		{"1111111111111111111111111111111111111111", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeAddress(tt.in); got != tt.want {
			t.Fatalf("NormalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := (Member{CirclesUsername: "alice", Handle: "al"}).DisplayName(); got != "alice" {
		t.Fatalf("got %q", got)
	}
	if got := (Member{Handle: "al"}).DisplayName(); got != "@al" {
		t.Fatalf("got %q", got)
	}
	if got := (Member{}).DisplayName(); got != "" {
		t.Fatalf("got %q", got)
	}
}
