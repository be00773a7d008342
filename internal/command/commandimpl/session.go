package commandimpl

import (
	"context"
	"sync"
)

// sessionState is the explicit conversation state per admin chat.
type sessionState int

const (
	stateIdle sessionState = iota
	stateAwaitAmount
	stateAwaitURL
	stateAwaitAccountURL
	stateAwaitAccountMode
	stateAwaitDeleteID
	stateAwaitRegularPeriod
	stateAwaitMonitorAccountsPeriod
	stateAwaitMonitorPostsPeriod
)

type unloadTarget int

const (
	targetJSON unloadTarget = iota
	targetSheets
)

type session struct {
	// handling serializes update processing for one chat; updates are
	// otherwise handled on separate goroutines.
	handling sync.Mutex

	state  sessionState
	target unloadTarget
	amount int

	// pendingURL carries the account URL between the add-account steps.
	pendingURL string

	// cancel stops an in-flight one-off unload for this chat.
	// Guarded by CommandImpl.mu, not by handling: the unload goroutine
	// clears it while the next update may already hold handling.
	cancel context.CancelFunc
}

func (c *CommandImpl) session(chatID int64) *session {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[chatID]
	if !ok {
		sess = &session{}
		c.sessions[chatID] = sess
	}
	return sess
}

// resetSession clears the conversation state in place. The session
// object is kept so its handling lock stays shared with in-flight
// updates for the same chat.
func (c *CommandImpl) resetSession(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[chatID]
	if !ok {
		c.sessions[chatID] = &session{}
		return
	}
	if sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}
	sess.state = stateIdle
	sess.target = targetJSON
	sess.amount = 0
	sess.pendingURL = ""
}
