package importer

import (
	"context"
)

// SourceItem is one document handed to the importer. Content holds raw
// bytes; in-memory sources can supply Text directly and skip decoding.
// Group ties the item to a unit its collector acknowledges as a whole,
// such as the mail message it was attached to.
type SourceItem struct {
	Name    string
	Content []byte
	Text    string
	IsText  bool
	Group   string
}

func FromBytes(name string, content []byte) SourceItem {
	return SourceItem{Name: name, Content: content}
}

func FromText(name string, text string) SourceItem {
	return SourceItem{Name: name, Text: text, IsText: true}
}

// Collection is what a Collector gathered: the items to import and the
// items it could not retrieve.
type Collection struct {
	Items    []SourceItem
	Failures []ImportError
	// Groups lists, in source order, the groups that were read completely.
	// Only those can be acknowledged.
	Groups []string

	// failedAt[k] is the number of items collected before Failures[k].
	failedAt []int
}

// Add appends an item belonging to group.
func (c *Collection) Add(group string, item SourceItem) {
	item.Group = group
	c.Items = append(c.Items, item)
}

// Read marks group as completely read.
func (c *Collection) Read(group string) {
	c.Groups = append(c.Groups, group)
}

// Fail records a retrieval failure for source at the current position.
func (c *Collection) Fail(source string, err error) {
	c.Failures = append(c.Failures, newImportError(source, KindOf(err, TransportError), err))
	c.failedAt = append(c.failedAt, len(c.Items))
}

// mergeErrors interleaves the retrieval failures with the per-item errors so
// the result follows the order in which the collector met them.
func (c *Collection) mergeErrors(itemErrs []*ImportError) []ImportError {
	out := make([]ImportError, 0, len(c.Failures)+len(itemErrs))
	position := func(k int) int {
		if k < len(c.failedAt) {
			return c.failedAt[k]
		}
		return 0
	}
	f := 0
	for idx, e := range itemErrs {
		for ; f < len(c.Failures) && position(f) <= idx; f++ {
			out = append(out, c.Failures[f])
		}
		if e != nil {
			out = append(out, *e)
		}
	}
	return append(out, c.Failures[f:]...)
}

type Collector interface {
	Collect(ctx context.Context) (*Collection, error)
}

// Acker is implemented by collectors that must be told when every item of a
// group is stored, e.g. to flag a mail message as read. Groups with a failed
// item are left alone so the next run sees them again.
type Acker interface {
	Ack(ctx context.Context, group string) error
}
