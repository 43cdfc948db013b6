package export

import (
	"encoding/json"
	"io"
)

// JSONExporter exports a transcript as one pretty-printed JSON document.
type JSONExporter struct{}

// Export implements Exporter.
func (e *JSONExporter) Export(t Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// Extension implements Exporter.
func (e *JSONExporter) Extension() string { return "json" }

// Import implements Importer.
func (e *JSONExporter) Import(r io.Reader) (Transcript, error) {
	var t Transcript
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return Transcript{}, err
	}
	return t, nil
}
