package stream

import (
	"context"
	"time"
)

// Default pacing for replaying pre-generated text.
const (
	DefaultChunkSize  = 10
	DefaultChunkDelay = 30 * time.Millisecond
	DefaultTurnDelay  = 200 * time.Millisecond
)

// Pacer replays text that already exists in full as a sequence of small
// fragments with a fixed cadence. It is a presentation device: the cadence
// is deliberate and does not track any real generation.
type Pacer struct {
	ChunkSize  int
	ChunkDelay time.Duration
	TurnDelay  time.Duration
}

// DefaultPacer returns the reading-speed cadence used in production.
func DefaultPacer() Pacer {
	return Pacer{
		ChunkSize:  DefaultChunkSize,
		ChunkDelay: DefaultChunkDelay,
		TurnDelay:  DefaultTurnDelay,
	}
}

// Chunks splits text into slices of at most size runes.
func Chunks(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	out := make([]string, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		out = append(out, string(runes[i:min(i+size, len(runes))]))
	}
	return out
}

// Replay sends text to sink as text fragments, waiting ChunkDelay after
// each one.
func (p Pacer) Replay(ctx context.Context, sink Sink, text string) error {
	for _, chunk := range Chunks(text, p.ChunkSize) {
		if err := sink.Send(Text(chunk)); err != nil {
			return err
		}
		if err := sleep(ctx, p.ChunkDelay); err != nil {
			return err
		}
	}
	return nil
}

// BetweenTurns waits TurnDelay.
func (p Pacer) BetweenTurns(ctx context.Context) error {
	return sleep(ctx, p.TurnDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
