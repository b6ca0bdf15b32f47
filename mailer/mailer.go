package mailer

import (
    "fmt"
    "net/smtp"

    "go.uber.org/zap"
)

// Sender delivers outbound mail. Deliveries are fire-and-forget: callers
// never block on, or fail because of, the mail channel.
type Sender interface {
    Send(to, subject, body string)
}

// SMTPSender sends mail through a plain SMTP relay. When no host is
// configured it degrades to logging the message, which keeps local
// environments working without a relay.
type SMTPSender struct {
    host   string
    port   string
    user   string
    pass   string
    from   string
    logger *zap.Logger
}

func NewSMTPSender(host, port, user, pass, from string, logger *zap.Logger) *SMTPSender {
    return &SMTPSender{host: host, port: port, user: user, pass: pass, from: from, logger: logger}
}

func (s *SMTPSender) Send(to, subject, body string) {
    go func() {
        if s.host == "" {
            s.logger.Info("smtp not configured, mail not sent",
                zap.String("to", to), zap.String("subject", subject))
            return
        }

        msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
            s.from, to, subject, body))

        var auth smtp.Auth
        if s.user != "" {
            auth = smtp.PlainAuth("", s.user, s.pass, s.host)
        }

        if err := smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, msg); err != nil {
            s.logger.Error("failed to send mail",
                zap.String("to", to), zap.String("subject", subject), zap.Error(err))
        }
    }()
}
