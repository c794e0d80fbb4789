package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func testConfig(t *testing.T) *Config {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	cfg := defaultConfig()
	cfg.DataPath = t.TempDir()
	cfg.HTTPAddress = "127.0.0.1:0"
	cfg.FeedAddress = "127.0.0.1:0"
	cfg.PrivateKey = key

	return cfg
}

func TestNode_RunUntilCanceled(t *testing.T) {
	node, err := NewNode(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- node.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("node did not stop")
	}
}

func TestNode_FeedDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.FeedAddress = ""

	node, err := NewNode(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if node.feed != nil {
		t.Error("feed built with empty address")
	}

	node.Close()
}

func TestNode_ReopensData(t *testing.T) {
	cfg := testConfig(t)
	cfg.FeedAddress = ""

	first, err := NewNode(cfg)
	if err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := NewNode(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	second.Close()
}
