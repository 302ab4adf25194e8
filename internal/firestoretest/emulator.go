// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package firestoretest runs tests against a local Firestore emulator.
package firestoretest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("reserving port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func exited(cmd *exec.Cmd) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()
	return done
}

// StartEmulator launches a Firestore emulator on a free port and points
// FIRESTORE_EMULATOR_HOST at it. The returned channel yields nil once the
// emulator accepts connections, or the reason it never came up. Teardown is
// registered via t.Cleanup.
func StartEmulator(ctx context.Context, t *testing.T) <-chan error {
	t.Helper()
	port := freePort(t)
	addr := fmt.Sprintf("localhost:%d", port)
	cmd := exec.Command("gcloud", "emulators", "firestore", "start", "--host-port="+addr)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("starting firestore emulator: %v", err)
	}
	t.Setenv("FIRESTORE_EMULATOR_HOST", addr)
	t.Logf("firestore emulator starting on %s", addr)
	done := exited(cmd)
	result := make(chan error, 1)
	go func() {
		for {
			c, err := net.DialTimeout("tcp", addr, time.Second)
			if err == nil {
				c.Close()
				result <- nil
				return
			}
			select {
			case <-done:
				result <- errors.Errorf("firestore emulator exited: %s", cmd.ProcessState)
				return
			case <-ctx.Done():
				result <- ctx.Err()
				return
			case <-time.After(250 * time.Millisecond):
			}
		}
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// The emulator runs under a gcloud wrapper that does not forward
		// signals, so ask it to shut down over HTTP first.
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+"/shutdown", nil)
		if resp, err := http.DefaultClient.Do(req); err == nil {
			resp.Body.Close()
		}
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			cmd.Process.Kill()
		}
	})
	return result
}
