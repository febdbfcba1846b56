// SPDX-License-Identifier: MIT

// Package automation fires configured OSC and HTTP targets at timer
// lifecycle points. Targets are data-only consumers of the runtime snapshot;
// they can never mutate playback state, which rules out feedback loops.
package automation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/stagecast/rundownd/internal/playback"
)

// MaxTargetsPerCycle bounds the subscription list per lifecycle point.
const MaxTargetsPerCycle = 3

// TargetKind selects the transport of a subscription target.
type TargetKind string

const (
	KindOSC  TargetKind = "osc"
	KindHTTP TargetKind = "http"
)

var (
	ErrUnknownCycle   = errors.New("unknown lifecycle cycle")
	ErrTooManyTargets = errors.New("too many targets for cycle")
	ErrInvalidTarget  = errors.New("invalid automation target")
)

// Target is one automation subscription entry. OSC targets need Host, Port
// and Address; HTTP targets need URL and optionally Method (default GET).
// Address and URL accept {{cue}}, {{title}}, {{cycle}} and {{current}}
// placeholders expanded at fire time.
type Target struct {
	Kind    TargetKind `yaml:"kind" json:"kind"`
	Enabled bool       `yaml:"enabled" json:"enabled"`

	Host    string `yaml:"host,omitempty" json:"host,omitempty"`
	Port    int    `yaml:"port,omitempty" json:"port,omitempty"`
	Address string `yaml:"address,omitempty" json:"address,omitempty"`

	URL    string `yaml:"url,omitempty" json:"url,omitempty"`
	Method string `yaml:"method,omitempty" json:"method,omitempty"`
}

func (t Target) validate() error {
	switch t.Kind {
	case KindOSC:
		if t.Host == "" || t.Port <= 0 || t.Port > 65535 {
			return fmt.Errorf("%w: osc target needs host and port", ErrInvalidTarget)
		}
		if !strings.HasPrefix(t.Address, "/") {
			return fmt.Errorf("%w: osc address must start with /", ErrInvalidTarget)
		}
	case KindHTTP:
		u, err := url.Parse(t.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: http target needs an absolute http(s) url", ErrInvalidTarget)
		}
		switch strings.ToUpper(t.Method) {
		case "", "GET", "POST":
		default:
			return fmt.Errorf("%w: http method must be GET or POST", ErrInvalidTarget)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, t.Kind)
	}
	return nil
}

// Subscriptions maps each lifecycle point to its ordered target list.
type Subscriptions map[playback.Cycle][]Target

// Validate enforces the closed six-cycle key set, the per-cycle target cap
// and per-target shape. It runs at config load, never at fire time.
func (s Subscriptions) Validate() error {
	for cycle, targets := range s {
		if !cycle.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownCycle, cycle)
		}
		if len(targets) > MaxTargetsPerCycle {
			return fmt.Errorf("%w: %q has %d, max %d", ErrTooManyTargets, cycle, len(targets), MaxTargetsPerCycle)
		}
		for i, t := range targets {
			if err := t.validate(); err != nil {
				return fmt.Errorf("cycle %q target %d: %w", cycle, i, err)
			}
		}
	}
	return nil
}

// expand substitutes snapshot placeholders in a template string.
func expand(tmpl string, cycle playback.Cycle, snap playback.Snapshot) string {
	r := strings.NewReplacer(
		"{{cycle}}", string(cycle),
		"{{cue}}", snap.CueNow,
		"{{title}}", snap.TitleNow,
		"{{current}}", fmt.Sprintf("%d", snap.Current),
	)
	return r.Replace(tmpl)
}

// expandURL is expand with values query-escaped for use inside a URL.
func expandURL(tmpl string, cycle playback.Cycle, snap playback.Snapshot) string {
	r := strings.NewReplacer(
		"{{cycle}}", url.QueryEscape(string(cycle)),
		"{{cue}}", url.QueryEscape(snap.CueNow),
		"{{title}}", url.QueryEscape(snap.TitleNow),
		"{{current}}", fmt.Sprintf("%d", snap.Current),
	)
	return r.Replace(tmpl)
}
