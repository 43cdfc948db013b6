package export

import (
	"fmt"
	"io"

	"github.com/avelesov/neyra/internal/model/chat"
)

// MarkdownExporter renders a human-readable transcript.
type MarkdownExporter struct{}

// Export implements Exporter.
func (e *MarkdownExporter) Export(t Transcript, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# Conversation %s\n\n", t.UserID); err != nil {
		return err
	}
	for _, ex := range t.Exchanges {
		heading := "You"
		if ex.Role == chat.RoleAssistant {
			heading = fmt.Sprintf("Assistant (%s, %s)", ex.ModelUsed, ex.PersonaUsed)
		}
		_, err := fmt.Fprintf(w, "## %s — %s\n\n%s\n\n",
			heading, ex.CreatedAt.Format("2006-01-02 15:04"), ex.Content)
		if err != nil {
			return err
		}
	}
	return nil
}

// Extension implements Exporter.
func (e *MarkdownExporter) Extension() string { return "md" }
