package stream

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestChunks(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{"empty", "", 10, []string{}},
		{"exact", "0123456789", 10, []string{"0123456789"}},
		{"remainder", "0123456789ab", 10, []string{"0123456789", "ab"}},
		{"multibyte runes", "あいうえおかきくけこさし", 10, []string{"あいうえおかきくけこ", "さし"}},
		{"default size", "abcdefghijkl", 0, []string{"abcdefghij", "kl"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunks(tt.text, tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("Chunks() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
			if strings.Join(got, "") != tt.text {
				t.Error("chunks do not reassemble the text")
			}
		})
	}
}

func TestPacer_Replay(t *testing.T) {
	rec := &Recorder{}
	p := Pacer{ChunkSize: 4}

	if err := p.Replay(context.Background(), rec, "abcdefghij"); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	events := rec.Events()
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	for _, ev := range events {
		if ev.Type != TypeText {
			t.Errorf("event type = %q, want text", ev.Type)
		}
	}
	if events[2].Content != "ij" {
		t.Errorf("last chunk = %q", events[2].Content)
	}
}

func TestPacer_ReplayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Pacer{ChunkSize: 2, ChunkDelay: time.Hour}

	err := p.Replay(ctx, &Recorder{}, "abcdef")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Replay() error = %v, want context.Canceled", err)
	}
}

func TestPacer_ReplayStopsOnSinkError(t *testing.T) {
	closed := errors.New("closed")
	err := Pacer{}.Replay(context.Background(), &Recorder{Err: closed}, "abc")
	if !errors.Is(err, closed) {
		t.Errorf("Replay() error = %v, want closed", err)
	}
}
