// Package notify delivers job-match digest emails and tracks which matches
// a user has already been told about.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/jonathan/job-match-pro/internal/db"
)

// snippetLength caps the description excerpt in the digest.
const snippetLength = 200

// Sender delivers one digest email. A nil error means the provider confirmed
// acceptance; callers must not mark matches notified otherwise.
type Sender interface {
	Send(ctx context.Context, toEmail string, matches []db.MatchedJob) error
}

// DeliveryError reports a send the provider did not accept.
type DeliveryError struct {
	To         string
	StatusCode int
	Cause      error
}

func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("email delivery to %s failed: %v", e.To, e.Cause)
	}
	return fmt.Sprintf("email delivery to %s rejected with status %d", e.To, e.StatusCode)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// sendClient is the slice of the SendGrid client the sender needs.
type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailSender sends match digests through SendGrid.
type EmailSender struct {
	client    sendClient
	fromName  string
	fromEmail string
}

// NewEmailSender creates a SendGrid-backed digest sender.
func NewEmailSender(apiKey, fromName, fromEmail string) *EmailSender {
	return &EmailSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

// Send builds and delivers the digest. SendGrid acknowledges accepted mail
// with 202; anything else is a delivery failure.
func (s *EmailSender) Send(ctx context.Context, toEmail string, matches []db.MatchedJob) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", toEmail)
	subject := digestSubject(len(matches))
	message := mail.NewSingleEmail(from, subject, to, digestText(matches), digestHTML(matches))

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return &DeliveryError{To: toEmail, Cause: err}
	}
	if resp.StatusCode != 202 {
		return &DeliveryError{To: toEmail, StatusCode: resp.StatusCode}
	}
	return nil
}

func digestSubject(count int) string {
	if count == 1 {
		return "1 new job match for you"
	}
	return fmt.Sprintf("%d new job matches for you", count)
}

// digestHTML renders the digest body: one block per match with title,
// company, location, score and a short description excerpt.
func digestHTML(matches []db.MatchedJob) string {
	var b strings.Builder
	b.WriteString("<h2>New job matches</h2>\n")
	for _, m := range matches {
		b.WriteString(fmt.Sprintf(
			`<div style="margin-bottom:16px">
<h3><a href=%q>%s</a></h3>
<p>%s — %s</p>
<p><strong>Match score: %.2f</strong></p>
<p>%s</p>
</div>
`,
			m.URL,
			html.EscapeString(m.Title),
			html.EscapeString(m.Company),
			html.EscapeString(m.Location),
			m.Score,
			html.EscapeString(snippet(m.Description)),
		))
	}
	return b.String()
}

// digestText is the plain-text alternative part.
func digestText(matches []db.MatchedJob) string {
	var b strings.Builder
	b.WriteString("New job matches\n\n")
	for _, m := range matches {
		b.WriteString(fmt.Sprintf("%s at %s (%s)\nMatch score: %.2f\n%s\n%s\n\n",
			m.Title, m.Company, m.Location, m.Score, snippet(m.Description), m.URL))
	}
	return b.String()
}

func snippet(description string) string {
	description = strings.TrimSpace(description)
	if len(description) <= snippetLength {
		return description
	}
	// Back up to a rune boundary so the cut never splits a multi-byte
	// character.
	cut := snippetLength
	for cut > 0 && !utf8.RuneStart(description[cut]) {
		cut--
	}
	return strings.TrimSpace(description[:cut]) + "..."
}
