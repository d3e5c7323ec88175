package device

import (
	"fmt"
	"strings"
)

// Priority selects one of the two flows of a device.
type Priority int

const (
	Low  Priority = 0
	High Priority = 1
)

// Priorities lists every priority in flow index order.
var Priorities = [...]Priority{Low, High}

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case High:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority accepts "low" or "high" in any case.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "high":
		return High, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", s)
	}
}

func (p Priority) valid() bool { return p == Low || p == High }
