package pec

import (
	"context"
	"fmt"
	"strconv"

	"github.com/denysvitali/fatture/pkg/importer"
)

// Collector gathers the invoice attachments of the unseen messages. Each
// message is a group: it is marked seen through Ack, once the importer has
// stored all of its invoices.
type Collector struct {
	mb Mailbox
}

var (
	_ importer.Collector = (*Collector)(nil)
	_ importer.Acker     = (*Collector)(nil)
)

func NewCollector(mb Mailbox) *Collector {
	return &Collector{mb: mb}
}

func (c *Collector) Collect(ctx context.Context) (*importer.Collection, error) {
	uids, err := c.mb.ListMessages(ctx, Filter{Unseen: true})
	if err != nil {
		return nil, importer.Transport("search unseen messages", err)
	}
	log.Infof("found %d unseen messages", len(uids))

	coll := &importer.Collection{}
	for _, uid := range uids {
		source := fmt.Sprintf("message %d", uid)
		raw, err := c.mb.FetchMessage(ctx, uid)
		if err != nil {
			coll.Fail(source, importer.Transport("fetch", err))
			continue
		}
		attachments, err := Attachments(raw)
		if err != nil {
			coll.Fail(source, importer.Transport("parse", err))
			continue
		}
		group := strconv.FormatUint(uint64(uid), 10)
		for _, a := range attachments {
			log.Debugf("message %d: attachment %s", uid, a.Name)
			coll.Add(group, importer.FromBytes(group+"/"+a.Name, a.Content))
		}
		coll.Read(group)
	}
	return coll, nil
}

// Ack marks the message named by group as seen.
func (c *Collector) Ack(ctx context.Context, group string) error {
	uid, err := strconv.ParseUint(group, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid message uid %q: %w", group, err)
	}
	return c.mb.MarkSeen(ctx, uint32(uid))
}

// Count returns how many messages in the folder carry at least one invoice;
// a message holding both the plain and the signed document counts once.
func (c *Collector) Count(ctx context.Context) (messages int, invoices int, err error) {
	uids, err := c.mb.ListMessages(ctx, Filter{})
	if err != nil {
		return 0, 0, importer.Transport("search messages", err)
	}
	for _, uid := range uids {
		raw, err := c.mb.FetchMessage(ctx, uid)
		if err != nil {
			return 0, 0, importer.Transport(fmt.Sprintf("fetch message %d", uid), err)
		}
		attachments, err := Attachments(raw)
		if err != nil {
			log.Warnf("skipping message %d: %v", uid, err)
			continue
		}
		if len(attachments) > 0 {
			invoices++
		}
	}
	return len(uids), invoices, nil
}
