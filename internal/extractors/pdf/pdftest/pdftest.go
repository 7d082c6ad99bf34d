// Package pdftest builds small single-page PDF files for tests.
package pdftest

import (
	"fmt"
	"strings"
)

// documentID is the first element of the trailer /ID array of encrypted files.
const documentID = "00112233445566778899AABBCCDDEEFF"

// Build returns a single-page PDF showing text, with a correct cross-reference table.
func Build(text string) []byte {
	return build(text, "")
}

// BuildEncrypted returns the same document with a standard security handler
// of the given version in the trailer. The user password is not empty, so
// the file cannot be opened without one.
func BuildEncrypted(text string, version int) []byte {
	encrypt := fmt.Sprintf(
		"/Encrypt << /Filter /Standard /V %d /R 2 /Length 40 /P -4 /O <%s> /U <%s> >> /ID [<%s> <%s>]",
		version, strings.Repeat("A1", 32), strings.Repeat("5C", 32), documentID, documentID)
	return build(text, encrypt)
}

func build(text, trailer string) []byte {
	stream := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R %s>>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, trailer, xref)
	return []byte(b.String())
}
