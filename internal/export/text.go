package export

import (
	"fmt"
	"io"

	"github.com/avelesov/neyra/internal/model/chat"
)

// TextExporter renders the plain transcript format shown to end users in
// chat clients that cannot display markup.
type TextExporter struct{}

// Export implements Exporter.
func (e *TextExporter) Export(t Transcript, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Conversation %s (%d messages)\n\n", t.UserID, len(t.Exchanges)); err != nil {
		return err
	}
	for _, ex := range t.Exchanges {
		label := "You"
		if ex.Role == chat.RoleAssistant {
			label = fmt.Sprintf("Bot (%s)", ex.ModelUsed)
		}
		_, err := fmt.Fprintf(w, "%s (%s):\n%s\n\n",
			label, ex.CreatedAt.Format("15:04"), ex.Content)
		if err != nil {
			return err
		}
	}
	return nil
}

// Extension implements Exporter.
func (e *TextExporter) Extension() string { return "txt" }
