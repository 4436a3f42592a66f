// Package session drives the multi-step dictionary editing conversations.
// Each user has at most one pending action; every pending action ends back in
// the idle state, either on completion or on any handling error.
package session

import "errors"

// Action is the pending step a session waits on.
type Action string

const (
	ActionIdle             Action = "idle"
	ActionAdd              Action = "add"
	ActionEdit             Action = "edit"
	ActionDelete           Action = "delete"
	ActionTranslit         Action = "translit"
	ActionImport           Action = "import"
	ActionManualResolution Action = "manual_resolution"
	ActionCategoryChoice   Action = "category_choice"
)

// Session is the per-user pending state. Queue holds the unknown phrases still
// waiting for a transliteration and Category the category they are committed to.
type Session struct {
	UserID   int64
	Action   Action
	Queue    []string
	Category string
	Resolved int
}

// Input is one message routed to a pending session.
type Input struct {
	Text         string
	Document     []byte
	DocumentName string
}

// Reply is what the session answers. Choices are suggested one-tap answers.
type Reply struct {
	Text    string
	Choices []string
}

// ErrNoSession is returned by Machine.Handle when the user has nothing pending.
var ErrNoSession = errors.New("no pending session")

// ErrUnknownAction is returned for actions that cannot be entered or handled.
var ErrUnknownAction = errors.New("unknown session action")
