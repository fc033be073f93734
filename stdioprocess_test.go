package mcp_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/relaykit/mcp"
)

func TestNewStdioProcess_RequiresCommand(t *testing.T) {
	_, err := mcp.NewStdioProcess(context.Background(), mcp.StdioProcessConfig{})
	if err == nil {
		t.Fatal("NewStdioProcess() with empty Command, want error")
	}
}

func TestNewStdioProcess_LifecycleAndShutdown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var stderr bytes.Buffer
	proc, err := mcp.NewStdioProcess(ctx, mcp.StdioProcessConfig{
		Command: "cat",
		Stderr:  &stderr,
	})
	if err != nil {
		t.Fatalf("NewStdioProcess() unexpected error: %v", err)
	}

	session, err := proc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession() unexpected error: %v", err)
	}

	msg := mcp.JSONRPCMessage{JSONRPC: mcp.JSONRPCVersion, Method: "ping"}
	if err := session.Send(ctx, msg); err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	received := make(chan mcp.JSONRPCMessage, 1)
	go func() {
		for m := range session.Messages() {
			received <- m
			return
		}
	}()

	select {
	case got := <-received:
		if got.Method != msg.Method {
			t.Fatalf("received method = %q, want %q", got.Method, msg.Method)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for cat to echo the message back")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	if err := proc.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() unexpected error: %v", err)
	}
}

func TestNewStdioProcess_ShutdownKillsUnresponsiveProcess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	proc, err := mcp.NewStdioProcess(ctx, mcp.StdioProcessConfig{
		Command:       "sh",
		Args:          []string{"-c", "trap '' INT; exec sleep 30"},
		ShutdownGrace: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewStdioProcess() unexpected error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	start := time.Now()
	// The shell ignores SIGINT and execs sleep with SIGINT still ignored, so the
	// interrupt has no effect: the grace window elapses and the process gets killed.
	if err := proc.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Shutdown() took %v, want it to complete within the grace window", elapsed)
	}
}
