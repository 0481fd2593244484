package tui

import (
	"context"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"grepconsole/src/console"
	"grepconsole/src/contracts"
	"grepconsole/src/grep"
)

// RefreshMsg tells the model that a console received text since it was last drawn.
type RefreshMsg struct {
	ConsoleID string
}

// NotificationMsg carries a warning to show in the banner.
type NotificationMsg struct {
	ConsoleID string
	Message   string
}

// Sender delivers messages to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

const bridgeQueueSize = 256

// Bridge forwards console activity and grep notifications to a Bubble Tea program.
// Console writers never block on it: refreshes are coalesced per console and
// notifications that do not fit the queue are dropped.
type Bridge struct {
	queue chan tea.Msg

	mu      sync.Mutex
	pending map[string]*atomic.Bool
}

func NewBridge() *Bridge {
	return &Bridge{
		queue:   make(chan tea.Msg, bridgeQueueSize),
		pending: make(map[string]*atomic.Bool),
	}
}

// Watch attaches the bridge to c. Every write to c schedules one RefreshMsg.
func (b *Bridge) Watch(c *console.Console) (detach func(), err error) {
	id := c.ID()
	flag := b.flag(id)
	return c.Attach(console.ListenerFunc(func(grep.ProducerID, string, contracts.ContentType) {
		if !flag.CompareAndSwap(false, true) {
			return
		}
		select {
		case b.queue <- RefreshMsg{ConsoleID: id}:
		default:
			flag.Store(false)
		}
	}), false)
}

// Notify implements grep.Notifier.
func (b *Bridge) Notify(consoleID, message string) {
	select {
	case b.queue <- NotificationMsg{ConsoleID: consoleID, Message: message}:
	default:
	}
}

// Run forwards queued messages to s until ctx is done. program.Send blocks until
// the program runs, so Run belongs in its own goroutine.
func (b *Bridge) Run(ctx context.Context, s Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.queue:
			if r, ok := msg.(RefreshMsg); ok {
				b.flag(r.ConsoleID).Store(false)
			}
			s.Send(msg)
		}
	}
}

func (b *Bridge) flag(consoleID string) *atomic.Bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.pending[consoleID]
	if !ok {
		f = &atomic.Bool{}
		b.pending[consoleID] = f
	}
	return f
}
