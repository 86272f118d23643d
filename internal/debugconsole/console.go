// Package debugconsole is a stdin-driven debug console for exercising the
// Control-Plane Bridge without a real UPnP control point attached.
//
// It is adapted from the teacher's internal/control/stdin.go debug console
// (itself paired with monitor.go's Command/Handler interface), generalized
// from the chat client's start/stop/test recording commands to the
// renderer's play/pause/resume/stop/volume vocabulary, dispatched straight to
// a controlplane.Bridge instead of a custom Handler interface.
package debugconsole

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"direttarenderer/internal/controlplane"
	"direttarenderer/internal/core"
)

// Console reads line commands from stdin and drives a Bridge.
type Console struct {
	bridge *controlplane.Bridge
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a Console bound to bridge. Commands take effect only
// while the console's Start goroutine is running.
func New(parentCtx context.Context, bridge *controlplane.Bridge, logger *log.Logger) *Console {
	ctx, cancel := context.WithCancel(parentCtx)
	return &Console{bridge: bridge, logger: logger, ctx: ctx, cancel: cancel}
}

// Start begins reading commands in a background goroutine.
func (c *Console) Start() error {
	go c.loop()
	return nil
}

// Stop ends the console's read loop.
func (c *Console) Stop() error {
	c.cancel()
	return nil
}

func (c *Console) loop() {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("\n=== direttarenderer debug console ===")
	fmt.Println("  play <uri>      - set_uri + play")
	fmt.Println("  pause           - pause")
	fmt.Println("  resume          - resume")
	fmt.Println("  stop            - stop (graceful drain)")
	fmt.Println("  stop!           - stop (immediate)")
	fmt.Println("  vol <0-100>     - set volume")
	fmt.Println("  q | quit        - exit")
	fmt.Println("======================================")

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			fmt.Print("> ")
			line, err := reader.ReadString('\n')
			if err != nil {
				c.logger.Error("debug console: read failed", "err", err)
				return
			}
			c.dispatch(strings.TrimSpace(line))
		}
	}
}

func (c *Console) dispatch(line string) {
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "play":
		if len(fields) < 2 {
			fmt.Println("usage: play <uri>")
			return
		}
		c.bridge.SetURI(fields[1], "")
		if err := c.bridge.Play(c.ctx, core.Format{}, nil); err != nil {
			c.logger.Error("play failed", "err", err)
		}
	case "pause":
		c.bridge.Pause()
	case "resume":
		if err := c.bridge.Resume(c.ctx); err != nil {
			c.logger.Error("resume failed", "err", err)
		}
	case "stop":
		c.bridge.Stop(false)
	case "stop!":
		c.bridge.Stop(true)
	case "vol":
		if len(fields) < 2 {
			fmt.Println("usage: vol <0-100>")
			return
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Println("vol: not a number")
			return
		}
		c.bridge.SetVolume(v)
	case "q", "quit", "exit":
		c.cancel()
	default:
		fmt.Printf("unknown command: %s\n", cmd)
	}
}
