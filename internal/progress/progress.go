// Package progress defines the progress events raised by pipeline stages and
// the sinks that receive them. A sink is supplied per invocation.
package progress

import "sync"

// Stage tags a progress event and log entries with the phase that raised it.
type Stage string

const (
	StageValidation     Stage = "Validation"
	StageCsvParsing     Stage = "CsvParsing"
	StageObjectMatching Stage = "ObjectMatching"
	StagePropertyWrite  Stage = "PropertyWrite"
	StageSelectionSets  Stage = "SelectionSetCreation"
	StageTaskCreation   Stage = "TimeLinerTaskCreation"
	StagePostValidation Stage = "PostValidation"
	StageComplete       Stage = "Complete"
)

// Item reports progress through a per-row loop.
type Item struct {
	Stage        Stage
	CurrentIndex int
	TotalCount   int
	CurrentItem  string
	Success      bool
	Err          string
}

// Percentage returns the completed share in [0, 100].
func (i Item) Percentage() float64 {
	if i.TotalCount <= 0 {
		return 0
	}
	pct := float64(i.CurrentIndex) / float64(i.TotalCount) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Phase reports a stage boundary.
type Phase struct {
	Stage      Stage
	Percentage int
	Message    string
}

// Sink receives progress events.
type Sink interface {
	Item(Item)
	Phase(Phase)
}

// Noop discards every event.
type Noop struct{}

func (Noop) Item(Item)   {}
func (Noop) Phase(Phase) {}

// OrNoop returns s, or Noop when s is nil.
func OrNoop(s Sink) Sink {
	if s == nil {
		return Noop{}
	}
	return s
}

// Funcs adapts plain functions to a Sink. Either may be nil.
type Funcs struct {
	OnItem  func(Item)
	OnPhase func(Phase)
}

func (f Funcs) Item(i Item) {
	if f.OnItem != nil {
		f.OnItem(i)
	}
}

func (f Funcs) Phase(p Phase) {
	if f.OnPhase != nil {
		f.OnPhase(p)
	}
}

// Recorder keeps every event it receives. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	items  []Item
	phases []Phase
}

func (r *Recorder) Item(i Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, i)
}

func (r *Recorder) Phase(p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, p)
}

// Items returns recorded item events, optionally filtered to one stage.
func (r *Recorder) Items(stage Stage) []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Item
	for _, i := range r.items {
		if stage == "" || i.Stage == stage {
			out = append(out, i)
		}
	}
	return out
}

func (r *Recorder) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Phase(nil), r.phases...)
}

// Channel forwards phase events to a channel without blocking the sender.
// Item events are coalesced: only the latest is kept until read. Close
// must be called once the producer is done.
type Channel struct {
	phases chan Phase
	items  chan Item
}

func NewChannel(buffer int) *Channel {
	return &Channel{
		phases: make(chan Phase, buffer),
		items:  make(chan Item, 1),
	}
}

func (c *Channel) Phase(p Phase) {
	select {
	case c.phases <- p:
	default:
	}
}

func (c *Channel) Item(i Item) {
	select {
	case c.items <- i:
		return
	default:
	}
	// Drop the stale event and retry once.
	select {
	case <-c.items:
	default:
	}
	select {
	case c.items <- i:
	default:
	}
}

func (c *Channel) Phases() <-chan Phase { return c.phases }
func (c *Channel) ItemEvents() <-chan Item { return c.items }

func (c *Channel) Close() {
	close(c.phases)
	close(c.items)
}
