package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SchedulingProfile carries the full-plan-mode inputs §4.3 needs: a list
// of reminder lead times (minutes before a deadline) and the dispute
// window duration used to compute an escalation fire time. When it has
// offsets, they replace the single default reminder lead of the
// event-derived plan; deadlines are still taken from the snapshot. An
// empty or absent profile yields the minimalist behavior.
type SchedulingProfile struct {
	ReminderOffsetsMinutes []int         `yaml:"reminder_offsets_minutes"`
	DisputeWindow          time.Duration `yaml:"-"`
	DisputeWindowRaw       string        `yaml:"dispute_window"`
}

// LoadSchedulingProfile reads and parses the YAML profile at path. An
// empty path returns the zero-value profile (full-plan mode disabled).
func LoadSchedulingProfile(path string) (SchedulingProfile, error) {
	if path == "" {
		return SchedulingProfile{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return SchedulingProfile{}, fmt.Errorf("config: read scheduling profile: %w", err)
	}
	var p SchedulingProfile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return SchedulingProfile{}, fmt.Errorf("config: parse scheduling profile: %w", err)
	}
	if p.DisputeWindowRaw != "" {
		d, err := time.ParseDuration(p.DisputeWindowRaw)
		if err != nil {
			return SchedulingProfile{}, fmt.Errorf("config: invalid dispute_window %q: %w", p.DisputeWindowRaw, err)
		}
		p.DisputeWindow = d
	}
	for _, m := range p.ReminderOffsetsMinutes {
		if m < 0 {
			return SchedulingProfile{}, fmt.Errorf("config: reminder_offsets_minutes must be non-negative, got %d", m)
		}
	}
	return p, nil
}

// Enabled reports whether full-plan mode has any configured offsets.
func (p SchedulingProfile) Enabled() bool {
	return len(p.ReminderOffsetsMinutes) > 0
}
