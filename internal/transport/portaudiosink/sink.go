// Package portaudiosink adapts PortAudio's default output device into the
// transport.DownstreamSink contract, so the Sync Core has a runnable local
// sink for development and testing without a real LAN renderer attached.
//
// It is grounded on the teacher's internal/audio/player.go: the same
// portaudio.OpenDefaultStream callback-mode stream, the same
// Abort-on-cancel / Stop-on-graceful-end shutdown split, generalized from
// "pull bytes from our own ring buffer" to "call the Sync Core's
// fill_buffer on the stream's own cycle clock" — exactly the consumer
// state machine §4.4.2 already implements, so this adapter owns no
// buffering of its own.
package portaudiosink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	"direttarenderer/internal/core"
	"direttarenderer/internal/transport"
)

// Sink is a transport.DownstreamSink backed by the host's default PortAudio
// output device.
type Sink struct {
	logger *log.Logger

	mu     sync.Mutex
	stream *portaudio.Stream

	sampleRate float64
	channels   int
	bytesPer   int // 2 for int16 frames, PortAudio's native callback width
}

// New constructs a Sink. PortAudio itself must already be initialized by
// the caller (portaudio.Initialize / portaudio.Terminate bracket the
// process lifetime, per the teacher's main()).
func New(logger *log.Logger) *Sink {
	return &Sink{logger: logger, bytesPer: 2}
}

// Connect is a no-op: PortAudio's default device needs no connection
// handshake distinct from opening the stream itself, which NegotiateFormat
// triggers once the format is known.
func (s *Sink) Connect(ctx context.Context) error { return nil }

// Disconnect aborts and closes any open stream.
func (s *Sink) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked(true)
}

func (s *Sink) closeLocked(abort bool) error {
	if s.stream == nil {
		return nil
	}
	var err error
	if abort {
		err = s.stream.Abort()
	} else {
		err = s.stream.Stop()
	}
	if closeErr := s.stream.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	s.stream = nil
	return err
}

// Capabilities advertises 16-, 24- and 32-bit PCM in little-endian order.
// The stream Start opens carries int16 samples only, and Start reads every
// pulled buffer as little-endian int16 whatever bit depth was negotiated.
// PortAudio
// has no native DSD output path (DoP would require a DSD-capable exclusive
// device), so DSD is not advertised here.
func (s *Sink) Capabilities(ctx context.Context) (transport.SinkCapabilities, error) {
	return transport.SinkCapabilities{
		PCM16:        true,
		PCM24:        true,
		PCM32:        true,
		LittleEndian: true,
	}, nil
}

// NegotiateFormat accepts want unchanged and records nothing; Start always
// opens a 2-channel 44.1 kHz int16 stream regardless of the negotiated
// format.
func (s *Sink) NegotiateFormat(ctx context.Context, want core.SinkFormat) (core.SinkFormat, error) {
	return want, nil
}

// BytesPerBuffer always reports 0: Start opens the stream with the host's
// default frames-per-buffer and does not record it. Callers needing a
// buffer size should use transport.ComputeBytesPerBuffer directly.
func (s *Sink) BytesPerBuffer() int {
	return 0
}

// Start opens a PortAudio output stream and pulls from the Sync Core via
// pull on every callback, exactly on PortAudio's own cycle clock, until ctx
// is cancelled or Stop is called.
func (s *Sink) Start(ctx context.Context, pull transport.PullFunc) error {
	s.mu.Lock()
	if s.stream != nil {
		s.mu.Unlock()
		return fmt.Errorf("portaudiosink: already started")
	}

	channels := 2
	sampleRate := 44100.0

	// PortAudio settles on a fixed frames-per-buffer once the stream opens
	// and calls back with that same length on every cycle; outBytes is
	// sized generously up front and reused, never allocated on the hot
	// path. maxCallbackFrames is far above any host's chosen buffer size.
	const maxCallbackFrames = 1 << 16
	outBytes := make([]byte, maxCallbackFrames*channels*2)

	var shouldStop bool
	callback := func(out []int16) {
		n := len(out) * 2
		buf := outBytes
		if n > len(buf) {
			// Host asked for more than the pre-allocated ceiling; fall
			// back to a one-time allocation rather than corrupt memory.
			outBytes = make([]byte, n)
			buf = outBytes
		} else {
			buf = buf[:n]
		}
		pull(buf)
		for i := 0; i < len(out); i++ {
			out[i] = int16(buf[i*2]) | int16(buf[i*2+1])<<8
		}
		select {
		case <-ctx.Done():
			shouldStop = true
		default:
		}
	}

	stream, err := portaudio.OpenDefaultStream(0, channels, sampleRate, 0, callback)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("portaudiosink: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		s.mu.Unlock()
		return fmt.Errorf("portaudiosink: start stream: %w", err)
	}
	s.stream = stream
	s.sampleRate = sampleRate
	s.channels = channels
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.mu.Lock()
				s.closeLocked(true)
				s.mu.Unlock()
				return
			case <-ticker.C:
				if shouldStop {
					s.mu.Lock()
					s.closeLocked(false)
					s.mu.Unlock()
					return
				}
			}
		}
	}()

	return nil
}

// Stop aborts and closes the open stream, if any.
func (s *Sink) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked(true)
}
