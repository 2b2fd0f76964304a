package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/example/roombooking/internal/application"
)

// ErrRelayRejected is returned when the email relay answers with a non-2xx status.
var ErrRelayRejected = errors.New("notify: email relay rejected message")

// EmailRelayConfig configures an EmailRelay.
type EmailRelayConfig struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
	Retries int
}

// EmailRelay sends notifications through a Resend-compatible HTTP API.
type EmailRelay struct {
	client *resty.Client
	from   string
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

type relayError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewEmailRelay builds a relay client.
func NewEmailRelay(cfg EmailRelayConfig) *EmailRelay {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.From == "" {
		cfg.From = "onboarding@resend.dev"
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		return err != nil || (resp != nil && resp.StatusCode() >= 500)
	})

	return &EmailRelay{client: client, from: cfg.From}
}

// Notify implements application.Notifier.
func (r *EmailRelay) Notify(ctx context.Context, n application.Notification) error {
	if strings.TrimSpace(n.To) == "" {
		return fmt.Errorf("%w: missing recipient", ErrRelayRejected)
	}

	var failure relayError
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(emailRequest{
			From:    r.from,
			To:      []string{n.To},
			Subject: n.Subject,
			HTML:    renderHTML(n.Body),
			Text:    n.Body,
		}).
		SetError(&failure).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.IsError() {
		msg := failure.Message
		if msg == "" {
			msg = failure.Error
		}
		return fmt.Errorf("%w: status %d: %s", ErrRelayRejected, resp.StatusCode(), msg)
	}
	return nil
}

// renderHTML turns a plain text body into paragraphs.
func renderHTML(body string) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.TrimSpace(body), "\n\n") {
		if para = strings.TrimSpace(para); para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i := range lines {
			lines[i] = html.EscapeString(lines[i])
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
