// Package console models the consoles a user greps: a source console holding process
// output and the grep consoles derived from it. Every grep console owns a grep.Filter
// attached to its parent and writes the lines it forwards into its own history, so
// grep consoles can be derived from grep consoles.
package console

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"grepconsole/src/contracts"
	"grepconsole/src/grep"
	"grepconsole/src/logger"
)

// ReplayProducer is the producer id used when existing history is fed into a new grep console.
const ReplayProducer grep.ProducerID = "replay"

// inactiveSuffix is appended to the title of grep consoles whose parent is gone.
const inactiveSuffix = " (Inactive)"

var (
	ErrDisposed       = errors.New("console is disposed")
	ErrNotGrepConsole = errors.New("console is not a grep console")
)

// Listener receives every chunk written to a console.
type Listener interface {
	Process(producer grep.ProducerID, text string, contentType contracts.ContentType)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(producer grep.ProducerID, text string, contentType contracts.ContentType)

func (f ListenerFunc) Process(producer grep.ProducerID, text string, contentType contracts.ContentType) {
	f(producer, text, contentType)
}

// Options configures a source console. Grep consoles inherit them from their parent.
type Options struct {
	Name         string
	HistoryLines int
	Profile      grep.Profile
	Logger       logger.Logger
	// Notifier receives matching-timeout warnings of every grep console in the tree.
	Notifier grep.Notifier
}

// GrepOptions configures a grep console.
type GrepOptions struct {
	// ID reuses a console UUID, e.g. when reopening a pinned grep. A new UUID is generated when empty.
	ID string
	// OnApply is called after Apply installed a new model.
	OnApply func(c *Console, model grep.Model)
}

// Console is a named output document with listeners.
type Console struct {
	id       string
	parent   *Console
	history  *History
	log      logger.Logger
	notifier grep.Notifier
	filter   *grep.Filter // nil for source consoles

	mu        sync.Mutex
	title     string
	profile   grep.Profile
	model     *grep.Model
	onApply   func(c *Console, model grep.Model)
	listeners []*registration // copy-on-write
	detach    func()          // removes the filter from the parent
	children  []*Console
	disposed  bool
	inactive  bool
}

// New creates a source console.
func New(opts Options) *Console {
	if opts.Logger == nil {
		opts.Logger = logger.NewSilentLogger()
	}
	return &Console{
		id:       uuid.NewString(),
		title:    opts.Name,
		history:  NewHistory(opts.HistoryLines),
		log:      opts.Logger,
		notifier: opts.Notifier,
		profile:  opts.Profile,
	}
}

func (c *Console) ID() string { return c.id }

// ParentID returns the UUID of the parent console, or "" for a source console.
func (c *Console) ParentID() string {
	if c.parent == nil {
		return ""
	}
	return c.parent.id
}

func (c *Console) Parent() *Console { return c.parent }

func (c *Console) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// Model returns the installed grep model of a grep console.
func (c *Console) Model() (grep.Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return grep.Model{}, false
	}
	return *c.model, true
}

// IsGrep reports whether the console was derived from another console.
func (c *Console) IsGrep() bool { return c.filter != nil }

// Inactive reports whether the console no longer receives output.
func (c *Console) Inactive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inactive || c.disposed
}

// Lines returns the console text.
func (c *Console) Lines() []HistoryLine { return c.history.Lines() }

// Clear removes the console text.
func (c *Console) Clear() { c.history.Clear() }

// Children returns the grep consoles derived from c.
func (c *Console) Children() []*Console {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Console(nil), c.children...)
}

// Write appends a chunk to the console and hands it to every listener.
func (c *Console) Write(chunk contracts.Chunk) {
	if chunk.Text == "" {
		return
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.history.Append(chunk.Text, chunk.Type)
	listeners := c.listeners
	c.mu.Unlock()

	producer := grep.ProducerID(chunk.Producer)
	for _, r := range listeners {
		r.listener.Process(producer, chunk.Text, chunk.Type)
	}
}

// SinkListener forwards every chunk written to a console to s. Attached to a grep
// console it delivers one forwarded line per call.
func SinkListener(s grep.Sink) Listener {
	return ListenerFunc(func(_ grep.ProducerID, text string, contentType contracts.ContentType) {
		s.Write(text, contracts.OutputKindFor(contentType))
	})
}

type registration struct {
	listener Listener
}

// Attach registers a listener and returns the function that removes it. With
// replay the current console text is fed to the listener first, one line at a
// time, before any chunk written after the call.
func (c *Console) Attach(l Listener, replay bool) (detach func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, ErrDisposed
	}
	if replay {
		for _, line := range c.history.Lines() {
			l.Process(ReplayProducer, line.Text+"\n", line.Type)
		}
	}
	r := &registration{listener: l}
	listeners := make([]*registration, 0, len(c.listeners)+1)
	listeners = append(listeners, c.listeners...)
	c.listeners = append(listeners, r)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.detachLocked(r)
		})
	}, nil
}

func (c *Console) detachLocked(r *registration) {
	listeners := make([]*registration, 0, len(c.listeners))
	for _, existing := range c.listeners {
		if existing != r {
			listeners = append(listeners, existing)
		}
	}
	c.listeners = listeners
}

// OpenGrep derives a grep console from c. With a nil model the grep console stays
// empty until Apply is called. The current text of c is replayed into the new
// console before it starts following live output.
func (c *Console) OpenGrep(model *grep.Model, opts GrepOptions) (*Console, error) {
	var matcher grep.Matcher
	if model != nil {
		var err error
		if matcher, err = grep.Compile(*model); err != nil {
			return nil, err
		}
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}

	c.mu.Lock()
	profile := c.profile
	c.mu.Unlock()

	child := &Console{
		id:       id,
		parent:   c,
		history:  NewHistory(c.history.maxLines),
		log:      c.log,
		notifier: c.notifier,
		profile:  profile,
		onApply:  opts.OnApply,
	}
	if model != nil {
		m := *model
		child.model = &m
		child.title = m.Title()
	}

	filterOpts := []grep.Option{grep.WithConsoleID(id), grep.WithLogger(c.log)}
	if c.notifier != nil {
		filterOpts = append(filterOpts, grep.WithNotifier(c.notifier))
	}
	child.filter = grep.NewFilter(consoleSink{child}, profile, filterOpts...)
	child.filter.ModelUpdated(matcher)

	detach, err := c.Attach(child.filter, true)
	if err != nil {
		return nil, err
	}
	child.detach = detach
	child.filter.Dispose(ReplayProducer)

	c.mu.Lock()
	c.children = append(c.children, child)
	c.mu.Unlock()

	c.log.Debug("[Console] Opened grep console %s (%q) on %s", id, child.title, c.id)
	return child, nil
}

// Apply installs a new model on a grep console. Only lines written afterwards are
// affected.
func (c *Console) Apply(model grep.Model) error {
	if c.filter == nil {
		return ErrNotGrepConsole
	}
	matcher, err := grep.Compile(model)
	if err != nil {
		return err
	}
	c.filter.ModelUpdated(matcher)

	c.mu.Lock()
	c.model = &model
	c.title = model.Title()
	if c.inactive {
		c.title += inactiveSuffix
	}
	onApply := c.onApply
	c.mu.Unlock()

	if onApply != nil {
		onApply(c, model)
	}
	return nil
}

// SetProfile installs a profile on c and every grep console derived from it.
func (c *Console) SetProfile(p grep.Profile) {
	c.mu.Lock()
	c.profile = p
	children := append([]*Console(nil), c.children...)
	c.mu.Unlock()

	if c.filter != nil {
		c.filter.ProfileUpdated(p)
	}
	for _, child := range children {
		child.SetProfile(p)
	}
}

// Profile returns the installed profile.
func (c *Console) Profile() grep.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Dispose detaches c from its parent and stops it from receiving output. Grep
// consoles derived from c stay readable but are marked inactive.
func (c *Console) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	children := c.children
	c.children = nil
	c.listeners = nil
	c.mu.Unlock()

	if c.detach != nil {
		c.detach()
	}
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	for _, child := range children {
		child.deactivate()
	}
	c.log.Debug("[Console] Disposed %s", c.id)
}

func (c *Console) removeChild(child *Console) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.children {
		if existing == child {
			c.children = append(c.children[:i:i], c.children[i+1:]...)
			break
		}
	}
}

func (c *Console) deactivate() {
	c.mu.Lock()
	if c.inactive {
		c.mu.Unlock()
		return
	}
	c.inactive = true
	c.title += inactiveSuffix
	children := append([]*Console(nil), c.children...)
	c.mu.Unlock()

	for _, child := range children {
		child.deactivate()
	}
}

// String describes the console for logs.
func (c *Console) String() string {
	return fmt.Sprintf("Console{id=%s, title=%q}", c.id, c.Title())
}

// consoleSink writes lines forwarded by a grep filter into its console. Forwarded
// lines always end in a newline, so every upstream producer shares the console id.
type consoleSink struct {
	c *Console
}

func (s consoleSink) Write(text string, kind contracts.OutputKind) {
	s.c.Write(contracts.Chunk{
		Producer: s.c.id,
		Text:     text,
		Type:     contracts.ContentTypeFor(kind),
	})
}
