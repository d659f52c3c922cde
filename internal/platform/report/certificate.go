// Package report writes deletion certificates: a small PDF artifact kept per
// executed account deletion for operational evidence. The certificate names
// only the anonymous identity, never the original account.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"lessonmanager/internal/domain/account"
)

type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write renders the certificate and returns the file path.
func (w *Writer) Write(identity *account.AnonymizedIdentity) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join(w.dir, identity.AnonymousID+".pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Account Deletion Certificate")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Anonymous identity: %s", identity.AnonymousID))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Completed at: %s", identity.CompletedAt.UTC().Format(time.RFC3339)))
	pdf.Ln(7)
	pdf.Cell(0, 8, "All personal data has been anonymized and the identity removed.")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", err
	}
	return filePath, nil
}
