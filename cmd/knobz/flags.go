package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emshotton/knobz/internal/knobs"
)

// parseChannel accepts "a0".."a3" in any case, or a bare index.
func parseChannel(s string) (knobs.Channel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "a"), 10, 8)
	if err != nil || !knobs.Channel(n).Valid() {
		return 0, fmt.Errorf("unknown channel %q", s)
	}
	return knobs.Channel(n), nil
}

// parseChannels parses a comma-separated channel list.
func parseChannels(s string) ([]knobs.Channel, error) {
	var out []knobs.Channel
	for _, f := range strings.Split(s, ",") {
		if strings.TrimSpace(f) == "" {
			continue
		}
		ch, err := parseChannel(f)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

// parseRanges parses "a0=255,a1=full" into per-channel ranges.
func parseRanges(s string) (map[knobs.Channel]knobs.Range, error) {
	out := make(map[knobs.Channel]knobs.Range)
	for _, f := range strings.Split(s, ",") {
		if strings.TrimSpace(f) == "" {
			continue
		}
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("expected channel=range, got %q", f)
		}
		ch, err := parseChannel(name)
		if err != nil {
			return nil, err
		}
		r, err := knobs.ParseRange(value)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", ch, err)
		}
		out[ch] = r
	}
	return out, nil
}
