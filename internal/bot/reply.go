// Package bot routes inbound chat events either to a pending session or to a
// one-shot command, falling back to transliterating free text.
package bot

// Event is one inbound message. Document is the downloaded attachment, if any.
type Event struct {
	UserID       int64
	Text         string
	Document     []byte
	DocumentName string
}

// Attachment is a file sent along with a reply.
type Attachment struct {
	Name    string
	Content []byte
}

// Reply is what the transport delivers back. Keyboard rows are button labels.
type Reply struct {
	Text       string
	Keyboard   [][]string
	Attachment *Attachment
}
