// Package pdftest builds minimal single-page PDF fixtures for tests: a text
// layer plus optional link annotations, with a correct xref table so both the
// strict and the lenient reader accept them.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"testing"
)

// WriteFile writes a one-page PDF containing the given text and one link
// annotation per URI, and returns nothing; failures abort the test. Text and
// URIs must not contain parentheses or backslashes.
func WriteFile(t *testing.T, path, text string, uris []string) {
	t.Helper()
	if err := os.WriteFile(path, Build(text, uris), 0o644); err != nil {
		t.Fatalf("write pdf fixture: %v", err)
	}
}

// Build renders the PDF bytes for a one-page document.
func Build(text string, uris []string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)

	var annotRefs bytes.Buffer
	firstAnnot := 6
	for i := range uris {
		fmt.Fprintf(&annotRefs, "%d 0 R ", firstAnnot+i)
	}

	pageDict := "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >>"
	if len(uris) > 0 {
		pageDict += fmt.Sprintf(" /Annots [%s]", bytes.TrimSpace(annotRefs.Bytes()))
	}
	pageDict += " >>"

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		pageDict,
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	for _, uri := range uris {
		objects = append(objects,
			fmt.Sprintf("<< /Type /Annot /Subtype /Link /Rect [0 0 100 20] /A << /Type /Action /S /URI /URI (%s) >> >>", uri))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)

	return buf.Bytes()
}
