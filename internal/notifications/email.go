package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"text/template"
	"time"
	"wanderlust/pkg/kafka"
	"wanderlust/pkg/logger"
	"wanderlust/pkg/model"
)

// Mailer sends a plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	return m.send(addr, auth, m.cfg.From, []string{to}, msg.Bytes())
}

type emailTemplate struct {
	subject string
	body    *template.Template
}

const dateFormat = "Mon, 02 Jan 2006"

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format(dateFormat) },
}

var emailTemplates = map[string]emailTemplate{
	model.EventBookingCreated: {
		subject: "Your booking is reserved",
		body: template.Must(template.New("created").Funcs(funcs).Parse(
			`Your reservation {{.BookingID}} for {{.Rooms}} room(s) is on hold from {{date .CheckIn}} to {{date .CheckOut}}.
Complete payment to confirm it. Unpaid reservations are released automatically.
`)),
	},
	model.EventBookingConfirmed: {
		subject: "Booking confirmed",
		body: template.Must(template.New("confirmed").Funcs(funcs).Parse(
			`Your booking {{.BookingID}} is confirmed: {{.Rooms}} room(s) for {{.Guests}} guest(s), {{date .CheckIn}} to {{date .CheckOut}}.
`)),
	},
	model.EventBookingCancelled: {
		subject: "Booking cancelled",
		body: template.Must(template.New("cancelled").Funcs(funcs).Parse(
			`Your booking {{.BookingID}} for {{date .CheckIn}} to {{date .CheckOut}} has been cancelled.
`)),
	},
}

// RenderEmail returns the subject and body for event. Unknown event types
// report ok=false.
func RenderEmail(event model.BookingEvent) (subject, body string, ok bool, err error) {
	tmpl, ok := emailTemplates[event.Type]
	if !ok {
		return "", "", false, nil
	}
	var buf bytes.Buffer
	if err := tmpl.body.Execute(&buf, event); err != nil {
		return "", "", true, err
	}
	return tmpl.subject, buf.String(), true, nil
}

// EmailHandler consumes booking events and mails the guest. SMTP 4xx replies
// and network errors are retried by the consumer; anything else is permanent.
func EmailHandler(mailer Mailer, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event model.BookingEvent
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("failed to decode booking event", err)
		}
		if event.GuestEmail == "" {
			log.Debug("Skipping booking event without guest email", "booking_id", event.BookingID, "type", event.Type)
			return nil
		}

		subject, body, ok, err := RenderEmail(event)
		if err != nil {
			return kafka.NewPermanentError("failed to render email", err)
		}
		if !ok {
			log.Debug("No email for event type", "type", event.Type)
			return nil
		}

		if err := mailer.Send(ctx, event.GuestEmail, subject, body); err != nil {
			if isTransientSMTP(err) {
				return kafka.NewTransientError("failed to send email", err)
			}
			return kafka.NewPermanentError("failed to send email", err)
		}
		log.Info("Booking email sent", "booking_id", event.BookingID, "type", event.Type)
		return nil
	}
}

func isTransientSMTP(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || strings.Contains(strings.ToLower(err.Error()), "connection refused")
}
