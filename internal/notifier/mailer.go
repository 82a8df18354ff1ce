package notifier

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/errors"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// MailerConfig параметры SMTP
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	// TLSConfig нужен тестам с самоподписанным сертификатом
	TLSConfig *tls.Config
}

// Mailer отправляет письмо на каждый неуспешный результат
type Mailer struct {
	base
	config MailerConfig
	now    func() time.Time
}

// LoadCredentials читает файл учетных данных: первая строка логин, вторая пароль
func LoadCredentials(path string) (string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", errors.New(errors.ErrConfig, "Path in 'smtp_credentials' does not exist").WithDetails(path)
		}
		return "", "", errors.Wrap(err, errors.ErrConfig, "unable to open the credentials file")
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < 2 {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return "", "", errors.Wrap(err, errors.ErrConfig, "unable to read the credentials file")
	}

	if len(lines) < 2 || lines[0] == "" || lines[1] == "" {
		return "", "", errors.New(errors.ErrConfig,
			"mailer credentials username and password cannot be empty, expected file format: first line = username, second line = password")
	}

	return lines[0], lines[1], nil
}

// NewMailer создает SMTP notifier
func NewMailer(config MailerConfig, log logger.Logger) (*Mailer, error) {
	if config.Port == 0 {
		config.Port = 587
	}
	if len(config.To) == 0 {
		return nil, errors.New(errors.ErrConfig, "mailer requires at least one recipient")
	}

	return &Mailer{
		base:   newBase("mailer", log),
		config: config,
		now:    time.Now,
	}, nil
}

// Notify отправляет письмо всем получателям
func (m *Mailer) Notify(ctx context.Context, result domain.CheckerResult) error {
	if err := m.send(ctx, m.buildMessage(result)); err != nil {
		return m.fail(result, err)
	}

	m.logger.Info("Email sent successfully",
		logger.String("service", result.ServiceName),
		logger.Int("recipients", len(m.recipients())),
	)
	return nil
}

func (m *Mailer) recipients() []string {
	all := make([]string, 0, len(m.config.To)+len(m.config.Cc)+len(m.config.Bcc))
	all = append(all, m.config.To...)
	all = append(all, m.config.Cc...)
	all = append(all, m.config.Bcc...)
	return all
}

func (m *Mailer) send(ctx context.Context, message []byte) error {
	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := m.config.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{ServerName: m.config.Host}
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if ok, _ := client.Extension("AUTH"); ok && m.config.Username != "" {
		auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := client.Mail(m.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range m.recipients() {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := wc.Write(message); err != nil {
		wc.Close()
		return fmt.Errorf("failed to write email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to finish email data: %w", err)
	}

	return client.Quit()
}

// buildMessage собирает письмо. Bcc в заголовки не попадает.
func (m *Mailer) buildMessage(result domain.CheckerResult) []byte {
	var message strings.Builder

	message.WriteString(fmt.Sprintf("From: %s\r\n", m.config.From))
	message.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(m.config.To, ", ")))
	if len(m.config.Cc) > 0 {
		message.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(m.config.Cc, ", ")))
	}
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", AlertSubject))
	message.WriteString(fmt.Sprintf("Date: %s\r\n", m.now().Format(time.RFC1123Z)))
	message.WriteString(fmt.Sprintf("Message-ID: <%s@toktok>\r\n", uuid.NewString()))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(AlertBody(result))
	message.WriteString("\r\n")

	return []byte(message.String())
}
