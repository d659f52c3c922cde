package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lessonmanager/internal/domain/account"
)

func TestWriteCertificate(t *testing.T) {
	writer := NewWriter(t.TempDir())

	path, err := writer.Write(&account.AnonymizedIdentity{
		UserID:      "u1",
		AnonymousID: "anon_1700000000000_abcdefghi",
		CompletedAt: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if filepath.Base(path) != "anon_1700000000000_abcdefghi.pdf" {
		t.Fatalf("unexpected file name: %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("certificate missing: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("certificate is empty")
	}
}
