package devserver

import (
	"bytes"
	"fmt"
	"strings"

	pdfx "github.com/ledongthuc/pdf"
)

// maxPDFPages bounds how much of a PDF spec is read.
const maxPDFPages = 50

// specText returns the plain text of an uploaded spec.
func specText(contentType string, data []byte) (string, error) {
	if contentType != "application/pdf" {
		return string(data), nil
	}
	r, err := pdfx.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var out strings.Builder
	pages := min(r.NumPage(), maxPDFPages)
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		out.WriteString(strings.TrimSpace(txt))
		out.WriteString("\n")
	}
	return out.String(), nil
}
