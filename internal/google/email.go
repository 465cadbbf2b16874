package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"intelligence/internal/domain"
)

// EmailRequest is one outbound mail. Body is plain text (the serialized
// Markdown of the draft).
type EmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate checks the request shape.
func (r EmailRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.To, validation.Required, is.EmailFormat),
		validation.Field(&r.Subject, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// SplitSubject splits a serialized draft into subject and body: the first
// line carries the subject, everything after it is the body.
func SplitSubject(markdown string) (subject, body string) {
	subject, body, found := strings.Cut(markdown, "\n")
	if !found {
		return strings.TrimSpace(markdown), ""
	}
	return strings.TrimSpace(subject), strings.TrimLeft(body, "\n")
}

// EmailSender sends mail through the Gmail API on behalf of the user.
type EmailSender struct {
	logger *slog.Logger
}

// NewEmailSender creates a new Gmail sender.
func NewEmailSender(logger *slog.Logger) *EmailSender {
	return &EmailSender{logger: logger}
}

// Send submits the message via users.messages.send. The wire format is a
// raw RFC 822 message, base64url encoded per the Gmail API contract.
func (s *EmailSender) Send(ctx context.Context, accessToken string, req EmailRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	svc, err := gmail.NewService(ctx,
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	)
	if err != nil {
		return fmt.Errorf("failed to create gmail client: %w", err)
	}

	raw := strings.Join([]string{
		"To: " + req.To,
		`Content-Type: text/plain; charset="UTF-8"`,
		"Subject: " + req.Subject,
		"",
		req.Body,
	}, "\n")

	msg := &gmail.Message{Raw: base64.RawURLEncoding.EncodeToString([]byte(raw))}
	if _, err := svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", "to", req.To)
	return nil
}
