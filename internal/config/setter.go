package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// setter aplica valores respeitando flags alteradas explicitamente (changed).
type setter struct {
	changed map[string]bool
}

func newSetter(changed map[string]bool) *setter {
	if changed == nil {
		changed = map[string]bool{}
	}
	return &setter{changed: changed}
}

func (s *setter) skip(flag, value string) bool {
	return value == "" || s.changed[flag]
}

func (s *setter) setString(flag, value string, dst *string) {
	if s.skip(flag, value) {
		return
	}
	*dst = value
}

func (s *setter) setInt(flag, value string, dst *int) error {
	if s.skip(flag, value) {
		return nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

func (s *setter) setInt64(flag, value string, dst *int64) error {
	if s.skip(flag, value) {
		return nil
	}
	i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

func (s *setter) setDuration(flag, value string, dst *time.Duration) error {
	if s.skip(flag, value) {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *setter) setBool(flag, value string, dst *bool) error {
	if s.skip(flag, value) {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}

func (s *setter) setList(flag, value string, dst *[]string) {
	if s.skip(flag, value) {
		return
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
