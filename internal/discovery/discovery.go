// Package discovery browses the LAN for renderer control targets via mDNS
// and measures the path MTU to a selected peer, implementing the external
// collaborator spec.md's Control-Plane Bridge section names only by
// contract ("returns a peer address and MTU").
//
// Grounded on the teacher's sibling example doismellburning-samoyed's
// src/dns_sd.go, which announces a service with github.com/brutella/dnssd
// for the same "pure Go, no C library dependency" reason this package
// picks the same library to do the opposite operation: browse rather than
// announce.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/brutella/dnssd"
)

// Target is one renderer control surface discovered on the LAN.
type Target struct {
	InstanceName string
	Host         string
	Port         int
	IPs          []net.IP
}

// Browse collects every instance of serviceType advertised on the LAN
// within timeout, ordered by instance name so repeated runs produce a
// stable --list-targets numbering.
func Browse(ctx context.Context, serviceType string, timeout time.Duration) ([]Target, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var mu sync.Mutex
	found := make(map[string]Target)

	addFn := func(e dnssd.BrowseEntry) {
		mu.Lock()
		defer mu.Unlock()
		found[e.Name] = Target{
			InstanceName: e.Name,
			Host:         e.Host,
			Port:         e.Port,
			IPs:          append([]net.IP(nil), e.IPs...),
		}
	}
	rmvFn := func(e dnssd.BrowseEntry) {
		mu.Lock()
		defer mu.Unlock()
		delete(found, e.Name)
	}

	if err := dnssd.LookupType(ctx, serviceType, addFn, rmvFn); err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("discovery: lookup %s: %w", serviceType, err)
	}

	mu.Lock()
	targets := make([]Target, 0, len(found))
	for _, t := range found {
		targets = append(targets, t)
	}
	mu.Unlock()

	sort.Slice(targets, func(i, j int) bool { return targets[i].InstanceName < targets[j].InstanceName })
	return targets, nil
}

// ByIndex resolves a 1-based --target index against a Browse result,
// matching spec.md §6's CLI contract.
func ByIndex(targets []Target, index int) (Target, error) {
	if index < 1 || index > len(targets) {
		return Target{}, fmt.Errorf("discovery: target index %d out of range (found %d)", index, len(targets))
	}
	return targets[index-1], nil
}

// defaultProbeSize is large enough to straddle common link MTUs (1500,
// 9000 jumbo) when fragmentation is disabled, so a successful round trip
// at a given size indicates the path supports at least that size.
const defaultProbeSize = 9000

// MeasureMTU probes addr with a UDP datagram and returns the largest size
// that completed without the kernel reporting "message too long", clamped
// to [576, defaultProbeSize]. It bisects rather than attempting every size
// for a quick result.
func MeasureMTU(ctx context.Context, addr string) (int, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return 0, fmt.Errorf("discovery: dial %s: %w", addr, err)
	}
	defer conn.Close()

	lo, hi := 576, defaultProbeSize
	best := lo

	for lo <= hi {
		mid := (lo + hi) / 2
		if deadline, ok := ctx.Deadline(); ok {
			conn.SetWriteDeadline(deadline)
		} else {
			conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		}

		probe := make([]byte, mid)
		_, err := conn.Write(probe)
		if err != nil {
			hi = mid - 1
			continue
		}
		best = mid
		lo = mid + 1
	}

	return best, nil
}
