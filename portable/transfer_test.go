package portable

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUploadDownloadRoundTrip(t *testing.T) {
	md, dev := testDevice(t)
	md.AddStorage("Card", -1, -1)
	md.BlockSize = 8
	ctx := context.Background()

	data := []byte("twenty bytes payload")
	card := storageContent(t, dev, "Card")
	if err := card.UploadStream(ctx, "payload.bin", int64(len(data)), bytes.NewReader(data)); err != nil {
		t.Fatalf("UploadStream: %v", err)
	}

	file, err := card.GetChild(ctx, "payload.bin")
	if err != nil || file == nil {
		t.Fatalf("GetChild after upload: %v, %v", file, err)
	}
	props, err := file.GetProperties(ctx)
	if err != nil {
		t.Fatalf("GetProperties: %v", err)
	}
	if props.Size != int64(len(data)) {
		t.Errorf("uploaded size = %d, want %d", props.Size, len(data))
	}

	var out bytes.Buffer
	if err := file.DownloadStream(ctx, &out); err != nil {
		t.Fatalf("DownloadStream: %v", err)
	}
	if !bytes.Equal(out.Bytes(), data) {
		t.Errorf("round trip = %q, want %q", out.Bytes(), data)
	}
}

func TestUploadEmptyFile(t *testing.T) {
	md, dev := testDevice(t)
	md.AddStorage("Card", -1, -1)
	ctx := context.Background()

	card := storageContent(t, dev, "Card")
	if err := card.UploadStream(ctx, "empty", 0, strings.NewReader("")); err != nil {
		t.Fatalf("UploadStream: %v", err)
	}
	file, err := card.GetChild(ctx, "empty")
	if err != nil || file == nil {
		t.Fatalf("GetChild: %v, %v", file, err)
	}
	var out bytes.Buffer
	if err := file.DownloadStream(ctx, &out); err != nil {
		t.Fatalf("DownloadStream: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("empty file downloaded %d bytes", out.Len())
	}
}

func TestUploadShortSource(t *testing.T) {
	md, dev := testDevice(t)
	md.AddStorage("Card", -1, -1)
	ctx := context.Background()

	card := storageContent(t, dev, "Card")
	err := card.UploadStream(ctx, "short.bin", 10, strings.NewReader("four"))
	if err == nil {
		t.Fatalf("UploadStream succeeded with short source")
	}
}

func TestUploadDownloadFile(t *testing.T) {
	md, dev := testDevice(t)
	md.AddStorage("Card", -1, -1)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "src.txt")
	if err := os.WriteFile(src, []byte("local content"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	card := storageContent(t, dev, "Card")
	if err := card.UploadFile(ctx, "copy.txt", src); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	file, err := card.GetChild(ctx, "copy.txt")
	if err != nil || file == nil {
		t.Fatalf("GetChild: %v, %v", file, err)
	}
	dst := filepath.Join(t.TempDir(), "dst.txt")
	if err := file.DownloadFile(ctx, dst); err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "local content" {
		t.Errorf("downloaded %q, want %q", got, "local content")
	}
}
