// SPDX-License-Identifier: MIT

package automation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/stagecast/rundownd/internal/log"
	"github.com/stagecast/rundownd/internal/metrics"
	"github.com/stagecast/rundownd/internal/playback"
)

const (
	dispatchTimeout = 2 * time.Second

	// fireRate caps outbound automation traffic. onUpdate is already
	// throttled to second boundaries by the engine; this is the hard
	// ceiling across all cycles and targets.
	fireRate  = 30
	fireBurst = 60
)

// oscSender abstracts the OSC client for tests.
type oscSender interface {
	Send(packet osc.Packet) error
}

// Bus dispatches lifecycle firings to configured targets. Fire never blocks
// the caller: dispatch runs on its own goroutine with a timeout, and
// per-target failures are logged and counted but never propagated, so an
// unreachable automation target cannot stall playback.
type Bus struct {
	mu   sync.RWMutex
	subs Subscriptions

	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	// newOSC is a test seam; defaults to the go-osc client.
	newOSC func(host string, port int) oscSender

	wg sync.WaitGroup
}

// NewBus creates a bus with validated subscriptions.
func NewBus(subs Subscriptions) (*Bus, error) {
	if err := subs.Validate(); err != nil {
		return nil, err
	}
	return &Bus{
		subs:    subs,
		client:  &http.Client{Timeout: dispatchTimeout},
		limiter: rate.NewLimiter(rate.Limit(fireRate), fireBurst),
		logger:  log.WithComponent("automation"),
		newOSC: func(host string, port int) oscSender {
			return osc.NewClient(host, port)
		},
	}, nil
}

// Update swaps in a new subscription set, rejecting invalid ones. Used by
// config hot-reload.
func (b *Bus) Update(subs Subscriptions) error {
	if err := subs.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	b.subs = subs
	b.mu.Unlock()
	b.logger.Info().
		Str(log.FieldEvent, "automation.subscriptions_updated").
		Int("cycles", len(subs)).
		Msg("automation subscriptions updated")
	return nil
}

// Fire dispatches all enabled targets for the cycle, fire-and-forget.
// Stopping playback does not cancel dispatches already in flight.
func (b *Bus) Fire(cycle playback.Cycle, snap playback.Snapshot) {
	b.mu.RLock()
	targets := b.subs[cycle]
	b.mu.RUnlock()

	for _, target := range targets {
		if !target.Enabled {
			continue
		}
		if !b.limiter.Allow() {
			metrics.IncAutomationFailure(string(target.Kind), "rate_limited")
			continue
		}
		metrics.IncAutomationFired(string(cycle), string(target.Kind))

		b.wg.Add(1)
		go func(t Target) {
			defer b.wg.Done()
			if err := b.dispatch(t, cycle, snap); err != nil {
				metrics.IncAutomationFailure(string(t.Kind), "dispatch_error")
				b.logger.Warn().Err(err).
					Str(log.FieldEvent, "automation.dispatch_failed").
					Str(log.FieldCycle, string(cycle)).
					Str(log.FieldTarget, string(t.Kind)).
					Msg("automation dispatch failed")
			}
		}(target)
	}
}

// Drain waits for in-flight dispatches, used on shutdown.
func (b *Bus) Drain() {
	b.wg.Wait()
}

func (b *Bus) dispatch(t Target, cycle playback.Cycle, snap playback.Snapshot) error {
	switch t.Kind {
	case KindOSC:
		return b.sendOSC(t, cycle, snap)
	case KindHTTP:
		return b.sendHTTP(t, cycle, snap)
	}
	return fmt.Errorf("%w: kind %q", ErrInvalidTarget, t.Kind)
}

func (b *Bus) sendOSC(t Target, cycle playback.Cycle, snap playback.Snapshot) error {
	msg := osc.NewMessage(expand(t.Address, cycle, snap))
	msg.Append(string(cycle))
	msg.Append(snap.CueNow)
	msg.Append(snap.TitleNow)
	msg.Append(int32(snap.Current / 1000))
	if err := b.newOSC(t.Host, t.Port).Send(msg); err != nil {
		return fmt.Errorf("osc send %s:%d: %w", t.Host, t.Port, err)
	}
	return nil
}

func (b *Bus) sendHTTP(t Target, cycle playback.Cycle, snap playback.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	method := strings.ToUpper(t.Method)
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, expandURL(t.URL, cycle, snap), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("http %s: %w", t.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("http %s: status %d", t.URL, resp.StatusCode)
	}
	return nil
}
