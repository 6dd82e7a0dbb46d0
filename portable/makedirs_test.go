package portable

import (
	"context"
	"errors"
	"testing"
)

func TestMakeDirsCreatesChain(t *testing.T) {
	md, dev := testDevice(t)
	md.AddStorage("Card", -1, -1)
	ctx := context.Background()

	dir, err := dev.MakeDirs(ctx, "Nokia 6/Card/Music/Rock")
	if err != nil {
		t.Fatalf("MakeDirs: %v", err)
	}
	if dir.FullName() != "Nokia 6/Card/Music/Rock" {
		t.Errorf("full name = %q", dir.FullName())
	}
	if got := dir.Type(ctx); got != ContentTypeDirectory {
		t.Errorf("type = %v, want %v", got, ContentTypeDirectory)
	}

	// The chain is visible through independent resolution.
	found, err := dev.ContentFromDevicePath(ctx, "Nokia 6/Card/Music/Rock")
	if err != nil {
		t.Fatalf("ContentFromDevicePath: %v", err)
	}
	if found == nil {
		t.Fatalf("created chain not resolvable")
	}
}

func TestMakeDirsIdempotent(t *testing.T) {
	md, dev := testDevice(t)
	md.AddStorage("Card", -1, -1)
	ctx := context.Background()

	if _, err := dev.MakeDirs(ctx, "Nokia 6/Card/Music"); err != nil {
		t.Fatalf("first MakeDirs: %v", err)
	}
	if _, err := dev.MakeDirs(ctx, "Nokia 6/Card/Music"); err != nil {
		t.Fatalf("second MakeDirs: %v", err)
	}

	card := storageContent(t, dev, "Card")
	if n := countChildren(t, card.Children(ctx)); n != 1 {
		t.Fatalf("storage has %d children after repeated MakeDirs, want 1", n)
	}
}

func TestMakeDirsWrongDevice(t *testing.T) {
	md, dev := testDevice(t)
	md.AddStorage("Card", -1, -1)

	_, err := dev.MakeDirs(context.Background(), "OtherPhone/Card/Music")
	var cioErr *ContentIOError
	if !errors.As(err, &cioErr) {
		t.Fatalf("MakeDirs error = %v, want ContentIOError", err)
	}
}
