// Package wavdump implements a diagnostic transport.DownstreamSink that
// writes everything fill_buffer produces to a WAV file on disk, so a
// transition sequence or a conversion kernel's output can be inspected
// offline without a real renderer attached.
//
// It is grounded on the teacher's pattern of a small adapter goroutine
// driving the Sync Core on its own cycle clock (internal/audio/player.go's
// stream callback), generalized here to a ticker-driven pull loop and
// go-audio/wav's streaming Encoder in place of PortAudio's callback.
package wavdump

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"direttarenderer/internal/core"
	"direttarenderer/internal/transport"
	"direttarenderer/pkg/audiostats"
)

// Sink writes PCM audio pulled from the Sync Core to a WAV file. It only
// advertises PCM16 support: WAV has no native DSD container, so a DSD
// stream routed here would need DoP framing, which is out of scope for a
// diagnostic dump.
type Sink struct {
	path string

	mu      sync.Mutex
	file    *os.File
	encoder *wav.Encoder
	format  core.SinkFormat

	cycleInterval time.Duration
	pullSize      int
	logger        *log.Logger
}

// New constructs a Sink that will write to path once Connect/NegotiateFormat
// complete. cycleInterval and pullSize set the clock this sink drives
// fill_buffer on, standing in for a real transport's own cycle timing.
func New(path string, cycleInterval time.Duration, pullSize int, logger *log.Logger) *Sink {
	return &Sink{path: path, cycleInterval: cycleInterval, pullSize: pullSize, logger: logger}
}

// Connect is a no-op; the file is opened once the negotiated format is
// known, in NegotiateFormat.
func (s *Sink) Connect(ctx context.Context) error { return nil }

// Disconnect flushes and closes the WAV encoder and file.
func (s *Sink) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Sink) closeLocked() error {
	var err error
	if s.encoder != nil {
		err = s.encoder.Close()
		s.encoder = nil
	}
	if s.file != nil {
		if closeErr := s.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		s.file = nil
	}
	return err
}

// Capabilities advertises 16-bit little-endian PCM only.
func (s *Sink) Capabilities(ctx context.Context) (transport.SinkCapabilities, error) {
	return transport.SinkCapabilities{PCM16: true, LittleEndian: true}, nil
}

// NegotiateFormat creates the WAV file and returns want unchanged when want
// is 16-bit; any other bit depth is rejected with an error and no file is
// created. The encoder, and with it the WAV header, is set up in Start.
func (s *Sink) NegotiateFormat(ctx context.Context, want core.SinkFormat) (core.SinkFormat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if want.BitDepth != 16 {
		return core.SinkFormat{}, fmt.Errorf("wavdump: only 16-bit PCM is supported, got %d", want.BitDepth)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return core.SinkFormat{}, fmt.Errorf("wavdump: create %s: %w", s.path, err)
	}
	s.file = f
	s.format = want
	return want, nil
}

// BytesPerBuffer reports the configured pull size.
func (s *Sink) BytesPerBuffer() int { return s.pullSize }

// Start pulls fixed-size buffers from the Sync Core on a ticker and
// appends each as a frame group to the WAV encoder, until ctx is
// cancelled.
func (s *Sink) Start(ctx context.Context, pull transport.PullFunc) error {
	s.mu.Lock()
	if s.file == nil {
		s.mu.Unlock()
		return fmt.Errorf("wavdump: Start called before NegotiateFormat")
	}
	s.encoder = wav.NewEncoder(s.file, 44100, 16, 2, 1)
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.cycleInterval)
		defer ticker.Stop()
		buf := make([]byte, s.pullSize)
		samples := make([]int16, s.pullSize/2)
		ints := make([]int, s.pullSize/2)

		statsTicker := time.NewTicker(time.Second)
		defer statsTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pull(buf)
				for i := range samples {
					samples[i] = int16(buf[i*2]) | int16(buf[i*2+1])<<8
					ints[i] = int(samples[i])
				}
				intBuf := &audio.IntBuffer{
					Format:         &audio.Format{SampleRate: 44100, NumChannels: 2},
					Data:           ints,
					SourceBitDepth: 16,
				}
				s.mu.Lock()
				if s.encoder != nil {
					s.encoder.Write(intBuf)
				}
				s.mu.Unlock()

				select {
				case <-statsTicker.C:
					if s.logger != nil {
						st := audiostats.Calculate(samples, 0)
						s.logger.Debug("wavdump buffer stats", "rms", st.RMS, "peak", st.Peak, "silence_ratio", st.SilenceRatio)
					}
				default:
				}
			}
		}
	}()

	return nil
}

// Stop closes the encoder and file, flushing the WAV header.
func (s *Sink) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}
