// Package taskexec implements the worker-side task bodies: the demo
// task types a dtq-worker process actually runs.
package taskexec

import (
	"context"
	"fmt"
	"time"
)

const maxSleepSeconds = 30

// Execute runs taskType against payload, honoring ctx cancellation
// during a sleep task's wait. Returns an error for any unknown type.
func Execute(ctx context.Context, taskType string, payload map[string]any) (map[string]any, error) {
	switch taskType {
	case "sleep":
		seconds := intField(payload, "seconds", 1)
		if seconds < 0 {
			seconds = 0
		}
		if seconds > maxSleepSeconds {
			seconds = maxSleepSeconds
		}
		select {
		case <-time.After(time.Duration(seconds) * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return map[string]any{"slept": seconds}, nil

	case "add":
		a := floatField(payload, "a", 0)
		b := floatField(payload, "b", 0)
		return map[string]any{"sum": a + b}, nil

	case "echo":
		return map[string]any{"echo": payload}, nil

	default:
		return nil, fmt.Errorf("unknown task type: %s", taskType)
	}
}

func intField(m map[string]any, key string, def int) int {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}

func floatField(m map[string]any, key string, def float64) float64 {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}
