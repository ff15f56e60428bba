// Package mailbox implements the process-local, in-memory inter-agent
// message queue: typed messages with priority, threading, and unread
// accounting. Grounded on tools/{check,send,reply}_mail_tool.py.
package mailbox

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Priority is a mail's urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status is a mail entry's lifecycle state. archived is terminal.
type Status string

const (
	StatusUnread   Status = "unread"
	StatusRead     Status = "read"
	StatusArchived Status = "archived"
)

// UserInbox is the literal recipient id an empty to_agent resolves to.
const UserInbox = "user"

// Mail is one mailbox entry.
type Mail struct {
	ID        string
	ThreadID  string
	From      string
	To        string
	Subject   string
	Body      string
	Priority  Priority
	Status    Status
	ReplyTo   string
	Metadata  map[string]any
	Timestamp time.Time
}

// AliasResolver resolves a free-form recipient name to a canonical agent
// id, satisfied by *agents.Registry.
type AliasResolver interface {
	ResolveAlias(name string) (string, error)
}

// Mailbox is the in-memory mail store.
type Mailbox struct {
	mu       sync.RWMutex
	byID     map[string]*Mail
	byRecip  map[string][]string // recipient id -> mail ids, insertion order
	resolver AliasResolver
}

// New creates an empty Mailbox. resolver may be nil, in which case
// recipient names are used verbatim (no alias resolution).
func New(resolver AliasResolver) *Mailbox {
	return &Mailbox{
		byID:     make(map[string]*Mail),
		byRecip:  make(map[string][]string),
		resolver: resolver,
	}
}

func (m *Mailbox) resolveRecipient(name string) string {
	if name == "" {
		return UserInbox
	}
	if m.resolver == nil {
		return name
	}
	id, err := m.resolver.ResolveAlias(name)
	if err != nil {
		return UserInbox
	}
	return id
}

// Send stores a new mail entry and returns its id.
func (m *Mailbox) Send(from, to, subject, body string, priority Priority, metadata map[string]any) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	recipient := m.resolveRecipient(to)
	if priority == "" {
		priority = PriorityNormal
	}
	mail := &Mail{
		ID:        uuid.NewString(),
		ThreadID:  uuid.NewString(),
		From:      from,
		To:        recipient,
		Subject:   subject,
		Body:      body,
		Priority:  priority,
		Status:    StatusUnread,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}
	m.store(mail)
	return mail.ID
}

// Reply sends a mail in reply to originalID: it inherits the original's
// thread_id, sets reply_to, and defaults the subject to "Re: <original>"
// when subject is empty (SUPPLEMENTED FEATURE #3).
func (m *Mailbox) Reply(originalID, from, subject, body string, priority Priority, metadata map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.byID[originalID]
	if !ok {
		return "", fmt.Errorf("mailbox: no mail with id %q", originalID)
	}
	if subject == "" {
		subject = "Re: " + original.Subject
	}
	if priority == "" {
		priority = PriorityNormal
	}

	mail := &Mail{
		ID:        uuid.NewString(),
		ThreadID:  original.ThreadID,
		From:      from,
		To:        m.resolveRecipient(original.From),
		Subject:   subject,
		Body:      body,
		Priority:  priority,
		Status:    StatusUnread,
		ReplyTo:   original.ID,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}
	m.store(mail)
	return mail.ID, nil
}

func (m *Mailbox) store(mail *Mail) {
	m.byID[mail.ID] = mail
	m.byRecip[mail.To] = append(m.byRecip[mail.To], mail.ID)
}

// Check returns recipient's unread messages and marks them read.
func (m *Mailbox) Check(recipient string) []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Mail
	for _, id := range m.byRecip[recipient] {
		mail := m.byID[id]
		if mail.Status == StatusUnread {
			mail.Status = StatusRead
			out = append(out, *mail)
		}
	}
	return out
}

// ListAll returns recipient's mail, optionally including read/archived
// entries, in insertion order.
func (m *Mailbox) ListAll(recipient string, includeRead, includeArchived bool) []Mail {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Mail
	for _, id := range m.byRecip[recipient] {
		mail := m.byID[id]
		switch mail.Status {
		case StatusUnread:
			out = append(out, *mail)
		case StatusRead:
			if includeRead {
				out = append(out, *mail)
			}
		case StatusArchived:
			if includeArchived {
				out = append(out, *mail)
			}
		}
	}
	return out
}

// UnreadCount returns the number of unread messages for recipient.
func (m *Mailbox) UnreadCount(recipient string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, id := range m.byRecip[recipient] {
		if m.byID[id].Status == StatusUnread {
			count++
		}
	}
	return count
}

// Get returns a single mail entry by id.
func (m *Mailbox) Get(id string) (Mail, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mail, ok := m.byID[id]
	if !ok {
		return Mail{}, false
	}
	return *mail, true
}

// Archive transitions a mail entry to the terminal archived status.
func (m *Mailbox) Archive(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mail, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("mailbox: no mail with id %q", id)
	}
	mail.Status = StatusArchived
	return nil
}
