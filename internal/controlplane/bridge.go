package controlplane

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"direttarenderer/internal/core"
	"direttarenderer/internal/logging"
	"direttarenderer/internal/orchestrator"
)

// Bridge exposes set_uri/set_next_uri/play/pause/resume/stop/seek to a
// control surface, mapping each to Transition Orchestrator or Sync Core
// calls per §4.6, and publishes outward TransportState/Volume/
// CurrentTrackURI events through a Broadcaster.
type Bridge struct {
	orch   *orchestrator.Orchestrator
	cr     *core.Core
	events *Broadcaster
	logger *log.Logger

	mu          sync.Mutex
	state       TransportState
	currentURI  string
	nextURI     string
	lastFormat  core.Format
	hasFormat   bool
	volume      int
	mute        bool
	gapless     bool
}

// NewBridge constructs a Bridge bound to an Orchestrator, its Core, and an
// event Broadcaster. Gapless set_next_uri handling is on by default;
// disable it with SetGapless(false).
func NewBridge(orch *orchestrator.Orchestrator, cr *core.Core, events *Broadcaster) *Bridge {
	return &Bridge{
		orch: orch, cr: cr, events: events,
		logger:  logging.For("controlplane"),
		state:   StateStopped,
		volume:  50,
		gapless: true,
	}
}

// SetGapless toggles whether SetNextURI is honored.
func (b *Bridge) SetGapless(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gapless = enabled
}

// SetURI clears the gapless next-URI and stores the current one.
func (b *Bridge) SetURI(uri, metadata string) {
	b.mu.Lock()
	b.currentURI = uri
	b.nextURI = ""
	b.mu.Unlock()
	b.events.Publish(Event{CurrentTrackURI: uri})
}

// SetNextURI stores the gapless queue entry, a no-op when gapless handling
// has been disabled.
func (b *Bridge) SetNextURI(uri, metadata string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.gapless {
		return
	}
	b.nextURI = uri
}

// Play opens the given format and preferences (the track that set_uri
// referred to) on Stopped, or resumes from Paused.
func (b *Bridge) Play(ctx context.Context, format core.Format, preferences []core.SinkFormat) error {
	b.mu.Lock()
	state := b.state
	b.mu.Unlock()

	if state == StatePausedPlayback {
		return b.Resume(ctx)
	}

	b.publishState(StateTransitioning)
	if err := b.orch.Open(ctx, format, preferences); err != nil {
		b.publishState(StateStopped)
		return fmt.Errorf("controlplane: play: %w", err)
	}

	b.mu.Lock()
	b.lastFormat = format
	b.hasFormat = true
	b.mu.Unlock()

	b.publishState(StatePlaying)
	return nil
}

// Pause requests silence buffers (10 for PCM, 30 for DSD), waits up to
// 80ms, stops the transport, and marks the bridge paused.
func (b *Bridge) Pause() {
	n := 10
	if b.isDSD() {
		n = 30
	}
	b.cr.RequestDrain(n)
	waitForState(b.cr, core.Stopped, 80*time.Millisecond)
	b.cr.Stop(true)
	b.publishState(StatePausedPlayback)
}

// Resume clears the ring, resets prefill, and resumes playback, waiting
// (bounded) until the consumer comes back online.
func (b *Bridge) Resume(ctx context.Context) error {
	b.mu.Lock()
	format, ok := b.lastFormat, b.hasFormat
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("controlplane: resume called with no prior format")
	}

	b.publishState(StateTransitioning)
	if err := b.orch.Open(ctx, format, nil); err != nil {
		return fmt.Errorf("controlplane: resume: %w", err)
	}
	waitForState(b.cr, core.Running, 2*time.Second)
	b.publishState(StatePlaying)
	return nil
}

// Stop requests drain silence (20 buffers for PCM, 50 for DSD) and waits
// up to 150ms before stopping, unless immediate is requested.
func (b *Bridge) Stop(immediate bool) {
	if immediate {
		b.cr.Stop(true)
		b.logUnderruns()
		b.publishState(StateStopped)
		return
	}

	n := 20
	if b.isDSD() {
		n = 50
	}
	b.cr.RequestDrain(n)
	waitForState(b.cr, core.Stopped, 150*time.Millisecond)
	b.cr.Stop(true)
	b.logUnderruns()
	b.publishState(StateStopped)
}

// logUnderruns drains the Sync Core's underrun counter and logs it,
// matching stop_playback()'s "drain and report" contract.
func (b *Bridge) logUnderruns() {
	if n := b.cr.DrainUnderrunCount(); n > 0 {
		b.logger.Infof("Session had %d underrun(s)", n)
	}
}

// Seek is a control-plane pass-through: the decoder performs the actual
// seek and issues a fresh set_uri/play sequence; the bridge's role is
// limited to the orchestrator-visible side effect of treating the seek
// target as a SameFormat transition (drain, clear, resume) when the format
// is unchanged.
func (b *Bridge) Seek(ctx context.Context, target string, format core.Format) error {
	b.publishState(StateTransitioning)
	if err := b.orch.Open(ctx, format, nil); err != nil {
		b.publishState(StateStopped)
		return fmt.Errorf("controlplane: seek: %w", err)
	}
	b.publishState(StatePlaying)
	return nil
}

// SetVolume publishes a Volume change event in [0,100].
func (b *Bridge) SetVolume(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	b.mu.Lock()
	b.volume = v
	b.mu.Unlock()
	b.events.Publish(Event{Volume: &v})
}

// SetMute publishes a Mute change event.
func (b *Bridge) SetMute(m bool) {
	b.mu.Lock()
	b.mute = m
	b.mu.Unlock()
	b.events.Publish(Event{Mute: &m})
}

func (b *Bridge) publishState(s TransportState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
	b.events.Publish(Event{TransportState: s})
}

func (b *Bridge) isDSD() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasFormat && b.lastFormat.IsDSD
}

func waitForState(c *core.Core, want core.PlaybackState, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return c.State() == want
}
