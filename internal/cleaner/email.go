package cleaner

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/smtp"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"

	"checkin-concierge-go/internal/config"
	"checkin-concierge-go/internal/models"
)

// Replies are correlated by the request id carried in the subject line.
var requestIDPattern = regexp.MustCompile(`\[REQ-([^\]]+)\]`)

// EmailNotifier sends queries over SMTP and polls for replies over IMAP.
// Each query's subject embeds the request id so the cleaner's reply (which
// keeps the subject) can be matched back to its request.
type EmailNotifier struct {
	cfg config.CleanerConfig
}

func NewEmailNotifier(cfg config.CleanerConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg}
}

func (n *EmailNotifier) SendQuery(_ context.Context, query models.CleanerQuery) (string, error) {
	subject := fmt.Sprintf("[REQ-%s] %s — %s", query.RequestID, query.PropertyName, query.Date)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.SMTPUser)
	fmt.Fprintf(&msg, "To: %s\r\n", n.cfg.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "X-Request-ID: %s\r\n", query.RequestID)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(RenderQuery(query))

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	auth := smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPassword, n.cfg.SMTPHost)
	if err := smtp.SendMail(addr, auth, n.cfg.SMTPUser, []string{n.cfg.Email}, []byte(msg.String())); err != nil {
		return "", fmt.Errorf("failed to send cleaner query: %w", err)
	}

	return "email-" + query.RequestID, nil
}

// PollResponses fetches unseen mail from the cleaner and extracts replies
// that carry a request id. The connection is opened per poll; the poll
// interval makes a persistent session pointless.
func (n *EmailNotifier) PollResponses(_ context.Context) ([]models.CleanerResponse, error) {
	c, err := imapclient.DialTLS(fmt.Sprintf("%s:%d", n.cfg.IMAPHost, n.cfg.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer c.Logout()

	if err := c.Login(n.cfg.SMTPUser, n.cfg.SMTPPassword); err != nil {
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Header.Add("From", n.cfg.Email)

	uids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}, messages)
	}()

	var responses []models.CleanerResponse
	var matched imap.SeqSet
	for msg := range messages {
		subject := ""
		if msg.Envelope != nil {
			subject = msg.Envelope.Subject
		}
		m := requestIDPattern.FindStringSubmatch(subject)
		if m == nil {
			continue
		}

		body, err := extractPlainText(msg.GetBody(section))
		if err != nil {
			logrus.Warnf("Failed to parse cleaner reply %q: %v", subject, err)
			continue
		}

		responses = append(responses, models.CleanerResponse{
			RequestID:  m[1],
			RawText:    body,
			ReceivedAt: time.Now().UTC(),
		})
		matched.AddNum(msg.SeqNum)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	// Mark only the matched replies as seen so unrelated mail stays unread.
	if !matched.Empty() {
		flags := []interface{}{imap.SeenFlag}
		if err := c.Store(&matched, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
			logrus.Warnf("Failed to mark cleaner replies as seen: %v", err)
		}
	}

	return responses, nil
}

func extractPlainText(r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("message has no body")
	}

	entity, err := message.Read(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", fmt.Errorf("failed to read part: %w", err)
			}
			contentType := p.Header.Get("Content-Type")
			if strings.Contains(contentType, "text/plain") {
				content, err := io.ReadAll(p.Body)
				if err != nil {
					return "", fmt.Errorf("failed to read part body: %w", err)
				}
				return string(content), nil
			}
		}
		return "", fmt.Errorf("no text/plain part found")
	}

	content, err := io.ReadAll(entity.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read message body: %w", err)
	}
	return string(content), nil
}

func (n *EmailNotifier) Close() error {
	return nil
}
