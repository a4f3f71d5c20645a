package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/italolelis/media_downloader/internal/storage"
)

// discordContentLimit is the maximum message length Discord accepts.
const discordContentLimit = 2000

type Notifier interface {
	Notify(ctx context.Context, content string) error
}

type DiscordNotifier struct {
	WebhookURL string
	Client     *http.Client
}

func (d *DiscordNotifier) Notify(ctx context.Context, content string) error {
	if d.WebhookURL == "" {
		return fmt.Errorf("webhook URL is not set")
	}

	if len(content) > discordContentLimit {
		n := discordContentLimit - 3
		for n > 0 && !utf8.RuneStart(content[n]) {
			n--
		}

		content = content[:n] + "..."
	}

	payload := map[string]string{"content": content}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook failed with status %d", resp.StatusCode)
	}

	return nil
}

// Summary formats the outcome of a batch as a notification message.
func Summary(records []storage.DownloadRecord) string {
	counts := map[string]int{}
	for _, r := range records {
		counts[r.Status]++
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Batch finished: %d completed, %d skipped, %d failed",
		counts[storage.StatusCompleted], counts[storage.StatusSkipped], counts[storage.StatusFailed])

	for _, r := range records {
		switch r.Status {
		case storage.StatusCompleted:
			fmt.Fprintf(&b, "\n✅ %s", r.InputURI)
		case storage.StatusSkipped:
			fmt.Fprintf(&b, "\n⏭️ %s", r.InputURI)
		default:
			fmt.Fprintf(&b, "\n❌ %s: %s", r.InputURI, r.Error)
		}
	}

	return b.String()
}
