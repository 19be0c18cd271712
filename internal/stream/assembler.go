package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iconidentify/buzzteacher/internal/domain"
)

// Assembler rebuilds persona sections, discussion turns and the video list
// from a stream of events, the way a rendering client does. Text fragments
// are attributed to whichever section or turn opened most recently.
type Assembler struct {
	body     strings.Builder
	sections []domain.PersonaSection
	turns    []domain.DebateTurn
	final    *domain.DebateFinal
	videos   []domain.VideoItem
	progress *Event
	done     bool

	openSection int
	openTurn    int
	inFinal     bool
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{openSection: -1, openTurn: -1}
}

// Send implements Sink so an assembler can tee a live stream.
func (a *Assembler) Send(ev Event) error {
	a.Apply(ev)
	return nil
}

// Apply folds one event into the assembled state.
func (a *Assembler) Apply(ev Event) {
	switch ev.Type {
	case TypeText:
		a.appendText(ev.Content)

	case TypeProgress:
		p := ev
		a.progress = &p

	case TypeCreatorStart:
		a.closeOpen()
		a.sections = append(a.sections, domain.PersonaSection{
			PersonaID:   ev.CreatorID,
			PersonaName: ev.Name,
			Streaming:   true,
		})
		a.openSection = len(a.sections) - 1

	case TypeCreatorEnd:
		if a.openSection >= 0 {
			a.sections[a.openSection].Streaming = false
			a.openSection = -1
		}

	case TypeDiscussionTurn:
		a.closeOpen()
		a.turns = append(a.turns, domain.DebateTurn{
			PersonaID:   ev.CreatorID,
			PersonaName: ev.CreatorName,
			ReplyTo:     ev.ReplyTo,
			Streaming:   true,
		})
		a.openTurn = len(a.turns) - 1

	case TypeDiscussionTurnEnd:
		if a.openTurn >= 0 {
			a.turns[a.openTurn].Streaming = false
			a.openTurn = -1
		}

	case TypeDiscussionFinal:
		a.closeOpen()
		a.final = &domain.DebateFinal{Streaming: true}
		a.inFinal = true

	case TypeDiscussionFinalEnd:
		if a.final != nil {
			a.final.Streaming = false
		}
		a.inFinal = false

	case TypeDiscussionStart, TypeDiscussionEnd:
		a.closeOpen()

	case TypeVideoList:
		a.videos = ev.Videos
	}
}

// Feed folds one frame payload (the part after "data: "). A payload that is
// not a valid event is appended as literal text.
func (a *Assembler) Feed(payload []byte) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return
	}
	if string(payload) == DoneSentinel {
		a.closeOpen()
		a.done = true
		return
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		a.appendText(string(payload))
		return
	}
	a.Apply(ev)
}

// ReadFrom consumes an SSE body until EOF or the done sentinel.
func (a *Assembler) ReadFrom(r io.Reader) (int64, error) {
	var n int64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		n += int64(len(line)) + 1
		data, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			continue
		}
		a.Feed(data)
		if a.done {
			return n, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("read stream: %w", err)
	}
	return n, nil
}

// Done reports whether the terminal sentinel was seen.
func (a *Assembler) Done() bool { return a.done }

// Sections returns the persona sections in arrival order.
func (a *Assembler) Sections() []domain.PersonaSection {
	out := make([]domain.PersonaSection, len(a.sections))
	copy(out, a.sections)
	return out
}

// Script returns the discussion turns and final seen so far.
func (a *Assembler) Script() domain.DebateScript {
	s := domain.DebateScript{Turns: make([]domain.DebateTurn, len(a.turns))}
	copy(s.Turns, a.turns)
	if a.final != nil {
		f := *a.final
		s.Final = &f
	}
	return s
}

// Videos returns the video list, if one was sent.
func (a *Assembler) Videos() []domain.VideoItem { return a.videos }

// LastProgress returns the most recent progress event.
func (a *Assembler) LastProgress() (Event, bool) {
	if a.progress == nil {
		return Event{}, false
	}
	return *a.progress, true
}

// Content flattens everything into one markdown document.
func (a *Assembler) Content() string {
	var parts []string
	if s := strings.TrimSpace(a.body.String()); s != "" {
		parts = append(parts, s)
	}
	if len(a.sections) > 1 {
		for _, s := range a.sections {
			parts = append(parts, "## "+s.PersonaName+"\n\n"+strings.TrimSpace(s.Content))
		}
	} else if len(a.sections) == 1 {
		parts = append(parts, strings.TrimSpace(a.sections[0].Content))
	}
	for _, t := range a.turns {
		parts = append(parts, "**"+t.PersonaName+"**: "+strings.TrimSpace(t.Text))
	}
	if a.final != nil {
		parts = append(parts, strings.TrimSpace(a.final.Text))
	}
	return strings.Join(parts, "\n\n")
}

func (a *Assembler) appendText(s string) {
	switch {
	case a.inFinal && a.final != nil:
		a.final.Text += s
	case a.openTurn >= 0:
		a.turns[a.openTurn].Text += s
	case a.openSection >= 0:
		a.sections[a.openSection].Content += s
	default:
		a.body.WriteString(s)
	}
}

func (a *Assembler) closeOpen() {
	if a.openSection >= 0 {
		a.sections[a.openSection].Streaming = false
		a.openSection = -1
	}
	if a.openTurn >= 0 {
		a.turns[a.openTurn].Streaming = false
		a.openTurn = -1
	}
	if a.inFinal && a.final != nil {
		a.final.Streaming = false
	}
	a.inFinal = false
}
