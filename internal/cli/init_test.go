package cli

import (
	"context"
	"syscall"
	"testing"
	"time"

	"expenses/internal/log"
)

func TestGracefulShutdown_RunsCleanup(t *testing.T) {
	cleaned := make(chan struct{})
	ctx, done := gracefulShutdown(log.Discard(), time.Second, func(context.Context) {
		close(cleaned)
	}, syscall.SIGUSR1)

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	if ctx.Err() == nil {
		t.Fatal("context should be cancelled")
	}
	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup was not called")
	}
}

func TestGracefulShutdown_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	_, done := gracefulShutdown(log.Discard(), 50*time.Millisecond, func(ctx context.Context) {
		<-release
	}, syscall.SIGUSR2)

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR2); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout should unblock shutdown")
	}
}

func TestSetupLogger(t *testing.T) {
	l := SetupLogger("bogus", "test")
	if l.Component() != "test" {
		t.Fatalf("component = %q", l.Component())
	}
}
