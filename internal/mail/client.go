package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	gomail "github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
)

// Gmail server defaults used when no explicit hosts are configured.
const (
	defaultIMAPHost = "imap.gmail.com"
	defaultIMAPPort = "993"
	defaultSMTPHost = "smtp.gmail.com"
	defaultSMTPPort = "465"

	draftsMailbox = "[Gmail]/Drafts"
)

// archiveMailboxes are tried in order when archiving a message.
var archiveMailboxes = []string{
	"Archive", "[Gmail]/All Mail", "Archives", "INBOX.Archive",
}

// ClientConfig holds the connection settings for the mail client.
// Empty host/port fields default to Gmail.
type ClientConfig struct {
	IMAPHost string
	IMAPPort string
	SMTPHost string
	SMTPPort string
	Username string
	Password string
}

// Client implements Transport over IMAP (go-imap v2) and SMTP. Each
// operation dials, runs, and logs out; the agent's batch is small and
// sequential, so connection reuse is not worth the reconnect handling.
type Client struct {
	cfg    ClientConfig
	logger *zap.Logger
}

// NewClient creates a mail client, applying Gmail defaults for any
// unset server settings.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.IMAPHost == "" {
		cfg.IMAPHost = defaultIMAPHost
	}
	if cfg.IMAPPort == "" {
		cfg.IMAPPort = defaultIMAPPort
	}
	if cfg.SMTPHost == "" {
		cfg.SMTPHost = defaultSMTPHost
	}
	if cfg.SMTPPort == "" {
		cfg.SMTPPort = defaultSMTPPort
	}
	return &Client{cfg: cfg, logger: logger}
}

// connect establishes a TLS IMAP connection and authenticates. The
// caller is responsible for Logout on the returned client. Dial and
// authentication failures are ConnErrors: they abort the batch.
func (c *Client) connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.cfg.IMAPHost + ":" + c.cfg.IMAPPort

	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, &ConnError{
			Op:      "dial",
			Message: fmt.Sprintf("connecting to IMAP %s: %v", addr, err),
		}
	}

	if err := client.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &ConnError{
			Op:      "login",
			Message: fmt.Sprintf("authentication failed for %s: %v", c.cfg.Username, err),
		}
	}

	return client, nil
}

// FetchUnread selects INBOX, searches for unseen messages, and fetches
// the most recent ones with full threading context. Bodies are fetched
// with PEEK so messages stay unread until the agent marks them.
func (c *Client) FetchUnread(ctx context.Context, limit int) ([]Message, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unread messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var messages []Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		m := messageFromBuffer(buf)

		if raw := buf.FindBodySection(bodySection); raw != nil {
			body, references := parseBody(raw)
			m.Body = body
			if references != "" {
				m.References = references
			}
		}

		messages = append(messages, m)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching unread messages: %w", err)
	}

	return messages, nil
}

// ApplyLabel files a copy of the message under the named mailbox,
// creating the mailbox first. Standard IMAP has folders, not labels;
// on Gmail a copy into a mailbox shows up as that label.
func (c *Client) ApplyLabel(ctx context.Context, uid uint32, label string) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return fmt.Errorf("selecting INBOX: %w", err)
	}

	// Idempotent: an already-exists failure is fine.
	if err := client.Create(label, nil).Wait(); err != nil {
		c.logger.Debug("mailbox create failed, assuming it exists",
			zap.String("mailbox", label),
			zap.Error(err),
		)
	}

	uidSet := imap.UIDSetNum(imap.UID(uid))
	if _, err := client.Copy(uidSet, label).Wait(); err != nil {
		return fmt.Errorf("labeling message %d as %q: %w", uid, label, err)
	}

	return nil
}

// Archive moves the message out of INBOX, trying common archive
// mailbox names and falling back to the deleted flag.
func (c *Client) Archive(ctx context.Context, uid uint32) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return fmt.Errorf("selecting INBOX: %w", err)
	}

	uidSet := imap.UIDSetNum(imap.UID(uid))

	for _, mailbox := range archiveMailboxes {
		if _, err := client.Move(uidSet, mailbox).Wait(); err == nil {
			return nil
		}
	}

	storeCmd := client.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}, nil)

	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("archiving message %d: %w", uid, err)
	}
	return nil
}

// MarkSeen flags the message as read.
func (c *Client) MarkSeen(ctx context.Context, uid uint32) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return fmt.Errorf("selecting INBOX: %w", err)
	}

	uidSet := imap.UIDSetNum(imap.UID(uid))
	storeCmd := client.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)

	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("marking message %d seen: %w", uid, err)
	}
	return nil
}

// SendOrDraft dispatches the reply according to mode: ModeSend goes out
// via SMTP, ModeDraft is appended to the drafts mailbox.
func (c *Client) SendOrDraft(
	ctx context.Context,
	req ReplyRequest,
	mode model.ExecutionMode,
) error {
	raw := composeReply(c.cfg.Username, req)

	switch mode {
	case model.ModeSend:
		return c.smtpSend(req.To, raw)
	case model.ModeDraft:
		return c.saveDraft(ctx, raw)
	default:
		return fmt.Errorf("invalid send mode %q", mode)
	}
}

// saveDraft appends the composed message to the drafts mailbox with
// the draft flag set.
func (c *Client) saveDraft(ctx context.Context, raw string) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	data := []byte(raw)
	appendCmd := client.Append(draftsMailbox, int64(len(data)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagDraft},
		Time:  time.Now(),
	})

	if _, err := appendCmd.Write(data); err != nil {
		_ = appendCmd.Close()
		return fmt.Errorf("writing draft: %w", err)
	}
	if err := appendCmd.Close(); err != nil {
		return fmt.Errorf("closing draft append: %w", err)
	}
	if _, err := appendCmd.Wait(); err != nil {
		return fmt.Errorf("saving draft to %s: %w", draftsMailbox, err)
	}

	return nil
}

// messageFromBuffer extracts a Message from a FetchMessageBuffer.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer) Message {
	m := Message{
		UID: uint32(buf.UID),
	}

	if buf.Envelope != nil {
		m.MessageID = buf.Envelope.MessageID
		m.Subject = buf.Envelope.Subject
		m.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			m.Sender = from.Addr()
			m.SenderName = from.Name
		}
	}

	return m
}

// parseBody parses a raw RFC 2822 message using go-message and returns
// the plain-text body (HTML-stripped fallback) and the References
// header, which the envelope does not carry.
func parseBody(raw []byte) (body, references string) {
	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Unparseable MIME: treat the whole payload as plain text.
		return string(raw), ""
	}
	defer mr.Close()

	references = mr.Header.Get("References")

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := header.ContentType()
		data, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			textBody = string(data)
		case strings.HasPrefix(contentType, "text/html"):
			htmlBody = string(data)
		}
	}

	if textBody != "" {
		return textBody, references
	}
	return stripHTML(htmlBody), references
}

// stripHTML removes tags and collapses whitespace for a readable
// plain-text rendering of an HTML-only message.
func stripHTML(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			sb.WriteRune(' ')
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
