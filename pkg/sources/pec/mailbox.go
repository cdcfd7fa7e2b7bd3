// Package pec collects invoice attachments from a certified mail (PEC)
// mailbox over IMAP.
package pec

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/cacert"
)

var log = logrus.StandardLogger().WithField("package", "sources/pec")

const (
	DefaultFolder = "INBOX"
	defaultPort   = "993"
)

type Filter struct {
	// Unseen restricts the listing to messages without the \Seen flag.
	Unseen bool
}

type Mailbox interface {
	ListMessages(ctx context.Context, filter Filter) ([]uint32, error)
	FetchMessage(ctx context.Context, uid uint32) ([]byte, error)
	MarkSeen(ctx context.Context, uid uint32) error
	Close() error
}

type Config struct {
	Server   string
	User     string
	Password string
	Folder   string
	// InsecureSkipVerify accepts any server certificate. Several PEC
	// providers serve chains that do not verify.
	InsecureSkipVerify bool
	// CACert is a PEM file with the CA to trust instead of the system roots.
	CACert string
}

type IMAP struct {
	c *client.Client
}

var _ Mailbox = (*IMAP)(nil)

// Dial connects over TLS, logs in and selects the configured folder.
func Dial(ctx context.Context, cfg Config) (*IMAP, error) {
	if cfg.Server == "" || cfg.User == "" {
		return nil, fmt.Errorf("server and user are required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := cfg.Server
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		addr = net.JoinHostPort(addr, defaultPort)
	}
	folder := cfg.Folder
	if folder == "" {
		folder = DefaultFolder
	}

	tlsConfig, err := cacert.TLSConfig(cfg.CACert, cfg.InsecureSkipVerify)
	if err != nil {
		return nil, fmt.Errorf("pec ca: %w", err)
	}
	tlsConfig.ServerName = host

	log.Debugf("connecting to %s as %s", addr, cfg.User)
	c, err := client.DialTLS(addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if err := c.Login(cfg.User, cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("login: %w", err)
	}
	if _, err := c.Select(folder, false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("select %s: %w", folder, err)
	}
	return &IMAP{c: c}, nil
}

func (m *IMAP) ListMessages(ctx context.Context, filter Filter) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	criteria := imap.NewSearchCriteria()
	if filter.Unseen {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}
	return m.c.UidSearch(criteria)
}

// FetchMessage returns the full RFC 822 message without setting \Seen.
func (m *IMAP) FetchMessage(ctx context.Context, uid uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	section := &imap.BodySectionName{Peek: true}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.c.UidFetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var body []byte
	var readErr error
	for msg := range messages {
		r := msg.GetBody(section)
		if r == nil {
			continue
		}
		body, readErr = io.ReadAll(r)
	}
	if err := <-done; err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	if body == nil {
		return nil, fmt.Errorf("message %d not found", uid)
	}
	return body, nil
}

func (m *IMAP) MarkSeen(ctx context.Context, uid uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return m.c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil)
}

func (m *IMAP) Close() error {
	return m.c.Logout()
}
