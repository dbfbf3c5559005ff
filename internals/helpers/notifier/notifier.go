// file: internals/helpers/notifier/notifier.go
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"sekolahku_backend/internals/configs"
)

// ErrDeliveryFailed wraps provider rejections; callers report the failure
// without rolling back their own state.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// EmailChannel delivers one message to one address.
type EmailChannel interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SmsChannel delivers one short message to one phone number.
type SmsChannel interface {
	SendSms(ctx context.Context, msisdn, body string) error
}

/* ======= SENDGRID ======= */

type SendgridEmail struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendgridEmail() *SendgridEmail {
	return &SendgridEmail{
		client: sendgrid.NewSendClient(configs.SendgridAPIKey),
		from:   mail.NewEmail("Sekolahku", configs.EmailFrom),
	}
}

func (s *SendgridEmail) SendEmail(ctx context.Context, to, subject, body string) error {
	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to), body, body)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: sendgrid status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}

/* ======= CONSOLE ======= */

// ConsoleChannel logs instead of delivering. Used in development and as
// the SMS transport until a gateway is wired up.
type ConsoleChannel struct{}

func (ConsoleChannel) SendEmail(ctx context.Context, to, subject, body string) error {
	log.Printf("[NOTIFY] email to=%s subject=%q", to, subject)
	return nil
}

func (ConsoleChannel) SendSms(ctx context.Context, msisdn, body string) error {
	log.Printf("[NOTIFY] sms to=%s body=%q", msisdn, body)
	return nil
}

// DefaultEmail picks sendgrid when an API key is configured, the console
// channel otherwise.
func DefaultEmail() EmailChannel {
	if configs.SendgridAPIKey != "" {
		return NewSendgridEmail()
	}
	return ConsoleChannel{}
}

// DefaultSms returns the console transport.
func DefaultSms() SmsChannel {
	return ConsoleChannel{}
}
