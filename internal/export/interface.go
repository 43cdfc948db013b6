// Package export renders a user's exchange sequence in stable serialized
// forms. The JSON and JSONL forms are lossless and re-importable.
package export

import (
	"fmt"
	"io"

	"github.com/avelesov/neyra/internal/model/chat"
)

// Transcript is the exported view of one user's conversation.
type Transcript struct {
	UserID    string          `json:"userId"`
	Exchanges []chat.Exchange `json:"exchanges"`
}

// Exporter defines the interface for all export formats.
type Exporter interface {
	Export(t Transcript, w io.Writer) error
	Extension() string
}

// Importer is implemented by formats that can reproduce the exact exchange
// sequence they exported.
type Importer interface {
	Import(r io.Reader) (Transcript, error)
}

// NewExporter creates an exporter for the given format name.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json", "":
		return &JSONExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "text", "txt":
		return &TextExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, jsonl, md, text)", format)
	}
}
