package wavdump

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"direttarenderer/internal/core"
)

func TestCapabilitiesAdvertisesPCM16Only(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "dump.wav"), time.Millisecond, 4096, nil)
	caps, err := s.Capabilities(context.Background())
	require.NoError(t, err)
	require.True(t, caps.PCM16)
	require.True(t, caps.LittleEndian)
	require.False(t, caps.PCM24)
}

func TestNegotiateFormatRejectsNon16Bit(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "dump.wav"), time.Millisecond, 4096, nil)
	_, err := s.NegotiateFormat(context.Background(), core.SinkFormat{BitDepth: 24})
	require.Error(t, err)
}

func TestNegotiateFormatCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.wav")
	s := New(path, time.Millisecond, 4096, nil)

	got, err := s.NegotiateFormat(context.Background(), core.SinkFormat{BitDepth: 16})
	require.NoError(t, err)
	require.Equal(t, 16, got.BitDepth)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	require.NoError(t, s.Stop(context.Background()))
}

func TestStartRequiresNegotiateFormatFirst(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "dump.wav"), time.Millisecond, 4096, nil)
	err := s.Start(context.Background(), func([]byte) int { return 0 })
	require.Error(t, err)
}

func TestBytesPerBufferReportsConfiguredSize(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "dump.wav"), time.Millisecond, 8192, nil)
	require.Equal(t, 8192, s.BytesPerBuffer())
}
