package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"time"
)

// runSleep waits for the duration in the payload, e.g. "250ms".
func runSleep(ctx context.Context, payload string) (string, error) {
	d, err := time.ParseDuration(payload)
	if err != nil {
		return "", fmt.Errorf("invalid sleep duration %q: %w", payload, err)
	}
	if d < 0 {
		return "", fmt.Errorf("negative sleep duration %q", payload)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return fmt.Sprintf("slept %s", d), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// runChecksum returns the sha256 hex digest of the payload.
func runChecksum(_ context.Context, payload string) (string, error) {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:]), nil
}

// runProbe measures TCP connect latency to a host:port payload.
func (c *Core) runProbe(ctx context.Context, payload string) (string, error) {
	if _, _, err := net.SplitHostPort(payload); err != nil {
		return "", fmt.Errorf("invalid probe target %q: %w", payload, err)
	}

	start := time.Now()
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", payload)
	if err != nil {
		return "", fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	return fmt.Sprintf("%dms", time.Since(start).Milliseconds()), nil
}
