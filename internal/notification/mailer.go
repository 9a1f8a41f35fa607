package notification

import (
	"context"
	"errors"
	"fmt"
	"library-system/internal/config"
	"library-system/internal/pkg/apperrors"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const (
	BackendConsole = "console"
	BackendSMTP    = "smtp"
)

// Message is a plain-text mail with a single recipient.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer builds the mail backend named in cfg.
func NewMailer(cfg config.MailConfig, logger *slog.Logger) (Mailer, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendConsole:
		return NewConsoleMailer(logger), nil
	case BackendSMTP:
		return NewSMTPMailer(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown mail backend %q", apperrors.ErrInvalidArgument, cfg.Backend)
	}
}

// ConsoleMailer writes every message to the log instead of delivering it.
type ConsoleMailer struct {
	logger *slog.Logger
}

func NewConsoleMailer(logger *slog.Logger) *ConsoleMailer {
	return &ConsoleMailer{logger: logger.With("component", "ConsoleMailer")}
}

func (m *ConsoleMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "Mail message",
		slog.String("from", msg.From),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers through a relay. Repeated relay failures open a circuit
// breaker so a dead relay fails fast instead of stalling every reminder.
type SMTPMailer struct {
	addr    string
	auth    smtp.Auth
	send    sendFunc
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
	logger  *slog.Logger
}

func NewSMTPMailer(cfg config.MailConfig, logger *slog.Logger) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return newSMTPMailer(net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), auth, smtp.SendMail, logger)
}

func newSMTPMailer(addr string, auth smtp.Auth, send sendFunc, logger *slog.Logger) *SMTPMailer {
	logger = logger.With("component", "SMTPMailer", "addr", addr)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Mail circuit breaker changed state", "from", from.String(), "to", to.String())
		},
	})
	return &SMTPMailer{
		addr:    addr,
		auth:    auth,
		send:    send,
		breaker: breaker,
		now:     time.Now,
		logger:  logger,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw := m.compose(msg)
	_, err := m.breaker.Execute(func() (interface{}, error) {
		return nil, m.send(m.addr, m.auth, msg.From, []string{msg.To}, raw)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			m.logger.WarnContext(ctx, "Mail relay circuit open, message not sent", "to", msg.To)
		}
		return fmt.Errorf("%w: %w", apperrors.ErrNotificationFailed, err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
