package tui

import (
	"github.com/dohr-michael/todoia/clients/board"
	"github.com/dohr-michael/todoia/internal/enhance"
	"github.com/dohr-michael/todoia/internal/sessions"
)

// refreshedMsg reports a completed list refresh.
type refreshedMsg struct {
	err error
}

// mutatedMsg reports a completed create/update/toggle/delete.
type mutatedMsg struct {
	verb string
	err  error
}

// improvedMsg carries a settled description request. ok is false when the
// request was superseded or canceled.
type improvedMsg struct {
	target  enhance.Target
	outcome enhance.Outcome
	ok      bool
}

// chatSentMsg carries the settled outcome of one chat send.
type chatSentMsg struct {
	surface surfaceKind
	result  board.Result
	err     error
}

// historyMsg carries the persisted session history.
type historyMsg struct {
	messages []sessions.Message
	err      error
}

// historyClearedMsg reports a cleared session history.
type historyClearedMsg struct {
	err error
}

// LiveUpdateMsg is sent after a tasks.changed event triggered a refresh.
type LiveUpdateMsg struct {
	Err error
}

// DisconnectedMsg signals the live-update connection was lost.
type DisconnectedMsg struct {
	Err error
}
