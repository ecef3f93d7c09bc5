package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"text/template"

	"github.com/enescakir/emoji"
)

const defaultTemplate = `{{ statusEmoji .Failed }} job {{ .JobID }}: {{ .Total }} tasks, {{ .Failed }} failed ({{ .DurationMs }}ms)`

// Webhook posts a rendered job summary as JSON to a configured endpoint.
type Webhook struct {
	URL      string
	Template string
	Client   *http.Client

	mu   sync.RWMutex
	tmpl *template.Template
}

type webhookMessage struct {
	JobID  string `json:"job_id"`
	Total  int    `json:"total"`
	Failed int    `json:"failed"`
	Text   string `json:"text"`
}

func NewWebhook(url, tmpl string, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	w := &Webhook{
		URL:      url,
		Template: tmpl,
		Client:   client,
	}
	w.initTemplate()
	return w
}

func (w *Webhook) initTemplate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	funcMap := template.FuncMap{
		"statusEmoji": func(failed int) string {
			if failed > 0 {
				return emoji.Warning.String()
			}
			return emoji.CheckMarkButton.String()
		},
	}

	text := w.Template
	if text == "" {
		text = defaultTemplate
	}

	tmpl, err := template.New("summary").Funcs(funcMap).Parse(text)
	if err != nil {
		tmpl = template.Must(template.New("summary").Funcs(funcMap).Parse(defaultTemplate))
	}
	w.tmpl = tmpl
}

func (w *Webhook) Send(summary Summary) error {
	w.mu.RLock()
	tmpl := w.tmpl
	w.mu.RUnlock()

	var text bytes.Buffer
	if err := tmpl.Execute(&text, summary); err != nil {
		return fmt.Errorf("failed to render summary template: %w", err)
	}

	payload, err := json.Marshal(webhookMessage{
		JobID:  summary.JobID,
		Total:  summary.Total,
		Failed: summary.Failed,
		Text:   text.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	resp, err := w.Client.Post(w.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
