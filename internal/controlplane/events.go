// Package controlplane implements the Control-Plane Bridge: it converts
// external play/pause/stop/seek/set_uri events into Transition Orchestrator
// and Sync Core calls, and pushes TransportState/Volume/CurrentTrackURI
// change notifications outward.
//
// No SOAP/SSDP/GENA library exists anywhere in the example corpus this
// project was grounded on, so the outward event stream rides on
// gorilla/websocket — the one persistent-connection library the corpus
// carries — standing in for UPnP's GENA eventing. A real AVTransport/
// RenderingControl SCPD front end is out of scope (§1) and would sit on
// top of this bridge.
package controlplane

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// TransportState is the UPnP AVTransport-style playback state.
type TransportState string

const (
	StateStopped        TransportState = "STOPPED"
	StatePlaying        TransportState = "PLAYING"
	StatePausedPlayback TransportState = "PAUSED_PLAYBACK"
	StateTransitioning  TransportState = "TRANSITIONING"
)

// Event is one outward control-plane notification. Fields are omitted when
// not changed by the notification that produced them.
type Event struct {
	TransportState          TransportState `json:"transport_state,omitempty"`
	CurrentTrackURI         string         `json:"current_track_uri,omitempty"`
	CurrentTrackDuration    string         `json:"current_track_duration,omitempty"` // HH:MM:SS
	CurrentTransportActions string         `json:"current_transport_actions,omitempty"`
	Volume                  *int           `json:"volume,omitempty"`    // 0-100
	Mute                    *bool          `json:"mute,omitempty"`
	VolumeDB                *int           `json:"volume_db,omitempty"` // -3600..0, 1/256 dB units
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Broadcaster fans Events out to every currently subscribed control
// surface over a websocket connection, grounded on the teacher's
// internal/websocket/client.go write path (SetWriteDeadline + WriteMessage)
// but inverted: here the renderer is the server pushing to subscribers
// rather than a client pushing to one chat peer.
type Broadcaster struct {
	mutex        sync.RWMutex
	conns        map[*websocket.Conn]struct{}
	writeTimeout time.Duration
	logger       *log.Logger
}

// NewBroadcaster constructs an empty Broadcaster.
func NewBroadcaster(writeTimeout time.Duration, logger *log.Logger) *Broadcaster {
	return &Broadcaster{
		conns:        make(map[*websocket.Conn]struct{}),
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// ServeHTTP upgrades an inbound HTTP request to a websocket subscription
// and keeps it registered until the peer disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("control-plane event subscription upgrade failed", "err", err)
		return
	}

	b.mutex.Lock()
	b.conns[conn] = struct{}{}
	b.mutex.Unlock()

	go b.drain(conn)
}

// drain reads (and discards) incoming frames so pong/close control frames
// are processed, until the peer goes away, at which point the connection
// is deregistered.
func (b *Broadcaster) drain(conn *websocket.Conn) {
	defer func() {
		b.mutex.Lock()
		delete(b.conns, conn)
		b.mutex.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Publish marshals ev and writes it to every subscribed connection,
// dropping (and deregistering) any connection whose write fails or times
// out rather than letting one slow subscriber stall the others.
func (b *Broadcaster) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("control-plane event marshal failed", "err", err)
		return
	}

	b.mutex.RLock()
	targets := make([]*websocket.Conn, 0, len(b.conns))
	for c := range b.conns {
		targets = append(targets, c)
	}
	b.mutex.RUnlock()

	for _, conn := range targets {
		conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			b.mutex.Lock()
			delete(b.conns, conn)
			b.mutex.Unlock()
			conn.Close()
		}
	}
}
