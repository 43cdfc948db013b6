package export

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/avelesov/neyra/internal/model/chat"
)

// JSONLExporter exports one exchange per line, suitable for streaming
// consumers and log pipelines.
type JSONLExporter struct{}

// Export implements Exporter.
func (e *JSONLExporter) Export(t Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, ex := range t.Exchanges {
		if err := enc.Encode(ex); err != nil {
			return err
		}
	}
	return nil
}

// Extension implements Exporter.
func (e *JSONLExporter) Extension() string { return "jsonl" }

// Import implements Importer. The user ID is recovered from the first
// exchange line.
func (e *JSONLExporter) Import(r io.Reader) (Transcript, error) {
	var t Transcript
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ex chat.Exchange
		if err := json.Unmarshal(line, &ex); err != nil {
			return Transcript{}, err
		}
		if t.UserID == "" {
			t.UserID = ex.UserID
		}
		t.Exchanges = append(t.Exchanges, ex)
	}
	if err := scanner.Err(); err != nil {
		return Transcript{}, err
	}
	return t, nil
}
