package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

const (
	emailSendAttempts = 3
	maxRetryAfter     = 30 * time.Second
)

// EmailService sends transactional emails.
type EmailService interface {
	SendPasswordResetCode(ctx context.Context, toEmail, name, code, idempotencyKey string) error
}

// NoopEmailService is used when outgoing email is disabled. Codes are never logged.
type NoopEmailService struct{}

// SendPasswordResetCode logs the recipient and drops the code
func (s *NoopEmailService) SendPasswordResetCode(ctx context.Context, toEmail, name, code, idempotencyKey string) error {
	log.Printf("[EmailService] email disabled, password reset code for %s not sent", toEmail)
	return nil
}

// emailMessage is one rendered mail.
type emailMessage struct {
	to             string
	subject        string
	text           string
	html           string
	idempotencyKey string
}

// passwordResetMessage renders the reset code mail in plain text and HTML.
func passwordResetMessage(appName, toEmail, name, code string, ttl time.Duration) emailMessage {
	if name == "" {
		name = toEmail
	}
	minutes := int(ttl.Minutes())
	lines := []string{
		fmt.Sprintf("Hello %s,", name),
		fmt.Sprintf("Use the code %s to reset your %s password. The code expires in %d minutes.", code, appName, minutes),
		"If you did not ask for a password reset you can ignore this message.",
	}

	// HTML body: escape every line, highlight the code
	var body strings.Builder
	for i, line := range lines {
		if i == 1 {
			line = strings.Replace(html.EscapeString(line), code, "<strong>"+code+"</strong>", 1)
		} else {
			line = html.EscapeString(line)
		}
		body.WriteString("<p>" + line + "</p>")
	}

	return emailMessage{
		to:      toEmail,
		subject: fmt.Sprintf("Your %s password reset code", appName),
		text:    strings.Join(lines, "\n\n"),
		html:    body.String(),
	}
}

// ResendEmailService delivers mail through the Resend API.
type ResendEmailService struct {
	client  *resend.Client
	from    string
	appName string
	codeTTL time.Duration
}

// NewResendEmailService creates a Resend-backed sender
func NewResendEmailService(apiKey, from, appName string, codeTTL time.Duration) (*ResendEmailService, error) {
	switch {
	case apiKey == "":
		return nil, fmt.Errorf("resend api key is required")
	case from == "":
		return nil, fmt.Errorf("email sender address is required")
	}
	if appName == "" {
		appName = "LMS"
	}
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	return &ResendEmailService{
		client:  resend.NewClient(apiKey),
		from:    from,
		appName: appName,
		codeTTL: codeTTL,
	}, nil
}

// SendPasswordResetCode mails a reset code, retrying transient failures.
func (s *ResendEmailService) SendPasswordResetCode(ctx context.Context, toEmail, name, code, idempotencyKey string) error {
	if toEmail == "" || code == "" {
		return fmt.Errorf("recipient and code are required")
	}
	msg := passwordResetMessage(s.appName, toEmail, name, code, s.codeTTL)
	msg.idempotencyKey = strings.TrimSpace(idempotencyKey)
	return s.send(ctx, msg)
}

// send retries rate-limited and transient failures; other errors return at once.
func (s *ResendEmailService) send(ctx context.Context, msg emailMessage) error {
	req := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.to},
		Subject: msg.subject,
		Text:    msg.text,
		Html:    msg.html,
	}
	opts := &resend.SendEmailOptions{}
	if msg.idempotencyKey != "" {
		opts.IdempotencyKey = msg.idempotencyKey
	}

	// Send with retries
	var err error
	for attempt := 1; attempt <= emailSendAttempts; attempt++ {
		if _, err = s.client.Emails.SendWithOptions(ctx, req, opts); err == nil {
			return nil
		}

		wait, retryable := retryDelay(err, attempt)
		if !retryable {
			return fmt.Errorf("resend send failed: %w", err)
		}
		log.Printf("[EmailService] send to %s failed (attempt %d/%d), retrying in %v: %v",
			msg.to, attempt, emailSendAttempts, wait, err)

		// Wait, unless the request is cancelled
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("resend send failed after %d attempts: %w", emailSendAttempts, err)
}

// retryDelay honours Retry-After on rate limits and backs off linearly on network errors.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimited *resend.RateLimitError
	if errors.As(err, &rateLimited) {
		if secs, convErr := strconv.Atoi(strings.TrimSpace(rateLimited.RetryAfter)); convErr == nil && secs > 0 {
			wait := time.Duration(secs) * time.Second
			if wait > maxRetryAfter {
				wait = maxRetryAfter
			}
			return wait, true
		}
		// No usable Retry-After
		return time.Duration(attempt) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt) * 500 * time.Millisecond, true
	}
	return 0, false
}
