package source

import (
	"fmt"
	"io"
)

// TextReader handles plain text files. The text is passed through
// unchanged; the conversation parser owns normalisation.
type TextReader struct{}

func (p *TextReader) Read(r io.Reader, filename string) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return &Document{Title: titleOf(filename), Text: string(b)}, nil
}
