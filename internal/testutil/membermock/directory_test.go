package membermock

import (
	"context"
	"errors"
	"testing"

	"circles-credit-backend/internal/domain/member"
)

func TestDirectory_Lookup(t *testing.T) {
	d := &Directory{Members: map[string]member.Member{
		"0x00000000000000000000000000000000000000aa": {RecipientID: 1, Handle: "aa"},
	}}
	m, err := d.Lookup(context.Background(), "0x00000000000000000000000000000000000000AA")
	if err != nil || m.RecipientID != 1 {
		t.Fatalf("Lookup = %+v, %v", m, err)
	}
	if _, err := d.Lookup(context.Background(), "0x00000000000000000000000000000000000000bb"); !errors.Is(err, member.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
