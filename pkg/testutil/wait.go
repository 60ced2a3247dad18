package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// WaitFor is a generic utility to wait for a condition to be true.
// It returns nil if the condition becomes true within the timeout.
// It returns an error if the condition does not become true within the timeout.
func WaitFor(t *testing.T, description string, timeout time.Duration, condition func() bool) error {
	t.Helper()
	if condition() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := WaitForWithContext(ctx, t, description, condition); err != nil {
		return fmt.Errorf("condition '%s' not met within %v", description, timeout)
	}
	return nil
}

// WaitForWithContext is WaitFor bounded by ctx instead of a timeout.
func WaitForWithContext(ctx context.Context, t *testing.T, description string, condition func() bool) error {
	t.Helper()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context canceled while waiting for condition '%s': %v", description, ctx.Err())
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// WaitForClients waits until the live reload server has at least n clients.
func WaitForClients(t *testing.T, rs *ReloadServer, n int, timeout time.Duration) error {
	t.Helper()
	return WaitFor(t, fmt.Sprintf("%d live reload clients", n), timeout, func() bool {
		return rs.Server.Clients() >= n
	})
}
