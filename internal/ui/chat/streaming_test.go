// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestStreamingBufferBatchTrigger(t *testing.T) {
	b := NewStreamingBuffer()

	// Fill one short of a batch right after a flush. Timing alone may
	// not be due yet, so only the batch boundary is asserted.
	for i := 0; i < tokenBatchSize-1; i++ {
		b.Write("x")
	}
	if !b.Write("x") {
		t.Error("expected flush due at batch boundary")
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	b := NewStreamingBuffer()
	b.Write("hello ")
	b.Write("world")

	got := b.ForceFlush()
	if got != "hello world" {
		t.Errorf("ForceFlush = %q, want %q", got, "hello world")
	}
	if b.Pending() {
		t.Error("buffer should be empty after ForceFlush")
	}
	if b.ForceFlush() != "" {
		t.Error("second ForceFlush should return empty")
	}
}

func TestStreamingBufferFlushThrottle(t *testing.T) {
	b := NewStreamingBuffer()
	b.Write("a")

	// Immediately after creation the throttle interval has not elapsed.
	if got := b.Flush(); got != "" {
		t.Errorf("Flush inside throttle window = %q, want empty", got)
	}

	time.Sleep(minFlushInterval + 5*time.Millisecond)
	if got := b.Flush(); got != "a" {
		t.Errorf("Flush after interval = %q, want %q", got, "a")
	}
}

func TestStreamingBufferPreservesOrder(t *testing.T) {
	b := NewStreamingBuffer()
	for i := 0; i < 50; i++ {
		b.Write(fmt.Sprintf("%d,", i))
	}
	got := b.ForceFlush()
	want := ""
	for i := 0; i < 50; i++ {
		want += fmt.Sprintf("%d,", i)
	}
	if got != want {
		t.Errorf("order not preserved:\ngot  %q\nwant %q", got, want)
	}
}

func TestStreamingBufferReset(t *testing.T) {
	b := NewStreamingBuffer()
	b.Write("discard me")
	b.Reset()
	if b.Pending() {
		t.Error("buffer should be empty after Reset")
	}
	if got := b.ForceFlush(); got != "" {
		t.Errorf("ForceFlush after Reset = %q, want empty", got)
	}
}

func TestStreamingBufferConcurrentWrites(t *testing.T) {
	b := NewStreamingBuffer()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Write("t")
			}
		}()
	}
	wg.Wait()

	if got := len(b.ForceFlush()); got != 1000 {
		t.Errorf("flushed %d bytes, want 1000", got)
	}
}

func TestCancelManagerFire(t *testing.T) {
	var cm cancelManager

	if cm.fire() {
		t.Error("fire with no stream should report false")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cm.set(cancel)
	if !cm.active() {
		t.Error("expected active stream after set")
	}
	if !cm.fire() {
		t.Error("fire should report true with a stream registered")
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("context should be cancelled after fire")
	}
	if cm.active() {
		t.Error("manager should be inactive after fire")
	}
	if cm.fire() {
		t.Error("second fire should report false")
	}
}

func TestCancelManagerSetReplacesPrevious(t *testing.T) {
	var cm cancelManager

	ctx1, cancel1 := context.WithCancel(context.Background())
	cm.set(cancel1)

	_, cancel2 := context.WithCancel(context.Background())
	cm.set(cancel2)

	select {
	case <-ctx1.Done():
	default:
		t.Error("replacing the cancel func should cancel the previous stream")
	}
}

func TestCancelManagerClearDoesNotCancel(t *testing.T) {
	var cm cancelManager

	ctx, cancel := context.WithCancel(context.Background())
	cm.set(cancel)
	cm.clear()

	select {
	case <-ctx.Done():
		t.Error("clear must not cancel the context")
	default:
	}
	if cm.active() {
		t.Error("manager should be inactive after clear")
	}
}
