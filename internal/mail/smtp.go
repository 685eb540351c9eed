package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// composeReply builds the raw RFC 2822 reply with threading headers.
// The References chain is the original chain plus the replied-to
// Message-ID, per RFC 5322 threading rules.
func composeReply(from string, req ReplyRequest) string {
	subject := req.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", req.To))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))

	if req.InReplyToID != "" {
		msg.WriteString(fmt.Sprintf("In-Reply-To: <%s>\r\n", req.InReplyToID))

		references := fmt.Sprintf("<%s>", req.InReplyToID)
		if req.ReferencesChain != "" {
			references = req.ReferencesChain + " " + references
		}
		msg.WriteString(fmt.Sprintf("References: %s\r\n", strings.TrimSpace(references)))
	}

	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(req.Body)

	return msg.String()
}

// smtpSend delivers the raw message over an implicit TLS connection.
func (c *Client) smtpSend(to, raw string) error {
	addr := c.cfg.SMTPHost + ":" + c.cfg.SMTPPort

	tlsConfig := &tls.Config{ServerName: c.cfg.SMTPHost}
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, c.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	if err := client.Mail(c.cfg.Username); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}

	if _, err := writer.Write([]byte(raw)); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing message body: %w", err)
	}

	return client.Quit()
}
