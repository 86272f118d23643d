package debugconsole

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"direttarenderer/internal/controlplane"
	"direttarenderer/internal/core"
)

func newTestConsole(t *testing.T) (*Console, *core.Core) {
	t.Helper()
	cr := core.NewCore(1<<16, 0x00, 4096)
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{})
	events := controlplane.NewBroadcaster(time.Second, logger)
	bridge := controlplane.NewBridge(nil, cr, events)
	return New(context.Background(), bridge, logger), cr
}

func TestDispatchQuitCancelsContext(t *testing.T) {
	c, _ := newTestConsole(t)
	c.dispatch("quit")

	select {
	case <-c.ctx.Done():
	default:
		t.Fatal("expected context to be cancelled after quit")
	}
}

func TestDispatchVolumeDoesNotPanic(t *testing.T) {
	c, _ := newTestConsole(t)
	require.NotPanics(t, func() { c.dispatch("vol 42") })
}

func TestDispatchVolumeMissingArgumentIsNoop(t *testing.T) {
	c, _ := newTestConsole(t)
	require.NotPanics(t, func() { c.dispatch("vol") })
}

func TestDispatchUnknownCommandDoesNotPanic(t *testing.T) {
	c, _ := newTestConsole(t)
	require.NotPanics(t, func() { c.dispatch("banana") })
}

func TestDispatchEmptyLineIsNoop(t *testing.T) {
	c, _ := newTestConsole(t)
	require.NotPanics(t, func() { c.dispatch("") })
}
