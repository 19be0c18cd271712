// Package stream implements the server-pushed event protocol: the tagged
// event union, SSE framing, ordered multiplexing onto one connection, the
// client-side assembler and paced replay of pre-generated text.
package stream

import (
	"encoding/json"
	"fmt"

	"github.com/iconidentify/buzzteacher/internal/domain"
)

// EventType tags a wire message. Text fragments are untagged.
type EventType string

const (
	TypeText               EventType = ""
	TypeProgress           EventType = "progress"
	TypeCreatorStart       EventType = "creator_start"
	TypeCreatorEnd         EventType = "creator_end"
	TypeDiscussionStart    EventType = "discussion_start"
	TypeDiscussionEnd      EventType = "discussion_end"
	TypeDiscussionTurn     EventType = "discussion_turn"
	TypeDiscussionTurnEnd  EventType = "discussion_turn_end"
	TypeDiscussionFinal    EventType = "discussion_final"
	TypeDiscussionFinalEnd EventType = "discussion_final_end"
	TypeVideoList          EventType = "video_list"
)

// Event is one wire message. Only the fields relevant to Type are set.
type Event struct {
	Type EventType

	// progress
	Stage   string
	Percent *int
	Current *int
	Total   *int
	Steps   []domain.ProgressStep

	// creator and discussion markers
	CreatorID   string
	Name        string
	CreatorName string
	ReplyTo     string

	// video_list
	Videos []domain.VideoItem

	// untagged text fragment
	Content string
}

// Progress builds a progress event from a tracker update.
func Progress(u domain.ProgressUpdate) Event {
	return Event{
		Type:    TypeProgress,
		Stage:   u.Stage,
		Percent: u.Percent,
		Current: u.Current,
		Total:   u.Total,
		Steps:   u.Steps,
	}
}

// Stage builds a progress event without a percent or plan snapshot.
func Stage(stage string) Event {
	return Event{Type: TypeProgress, Stage: stage}
}

// Text builds an untagged text fragment.
func Text(content string) Event {
	return Event{Type: TypeText, Content: content}
}

func CreatorStart(id, name string) Event {
	return Event{Type: TypeCreatorStart, CreatorID: id, Name: name}
}

func CreatorEnd(id string) Event {
	return Event{Type: TypeCreatorEnd, CreatorID: id}
}

func DiscussionStart() Event { return Event{Type: TypeDiscussionStart} }

func DiscussionEnd() Event { return Event{Type: TypeDiscussionEnd} }

func DiscussionTurn(id, name, replyTo string) Event {
	return Event{Type: TypeDiscussionTurn, CreatorID: id, CreatorName: name, ReplyTo: replyTo}
}

func DiscussionTurnEnd(id string) Event {
	return Event{Type: TypeDiscussionTurnEnd, CreatorID: id}
}

func DiscussionFinal() Event { return Event{Type: TypeDiscussionFinal} }

func DiscussionFinalEnd() Event { return Event{Type: TypeDiscussionFinalEnd} }

// VideoList builds the terminal structured event of a profile analysis.
func VideoList(videos []domain.VideoItem) Event {
	return Event{Type: TypeVideoList, Videos: videos}
}

type delta struct {
	Content string `json:"content"`
}

type choice struct {
	Delta delta `json:"delta"`
}

// wireEvent is the superset of every tagged shape, used for decoding.
type wireEvent struct {
	Type        EventType             `json:"type,omitempty"`
	Stage       string                `json:"stage,omitempty"`
	Percent     *int                  `json:"percent,omitempty"`
	Current     *int                  `json:"current,omitempty"`
	Total       *int                  `json:"total,omitempty"`
	Steps       []domain.ProgressStep `json:"steps,omitempty"`
	CreatorID   string                `json:"creatorId,omitempty"`
	Name        string                `json:"name,omitempty"`
	CreatorName string                `json:"creatorName,omitempty"`
	ReplyTo     *string               `json:"replyTo,omitempty"`
	Videos      []domain.VideoItem    `json:"videos,omitempty"`
	Choices     []choice              `json:"choices,omitempty"`
}

// MarshalJSON encodes the event in its wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case TypeText:
		return json.Marshal(struct {
			Choices []choice `json:"choices"`
		}{[]choice{{Delta: delta{Content: e.Content}}}})

	case TypeProgress:
		return json.Marshal(struct {
			Type    EventType             `json:"type"`
			Stage   string                `json:"stage"`
			Percent *int                  `json:"percent,omitempty"`
			Current *int                  `json:"current,omitempty"`
			Total   *int                  `json:"total,omitempty"`
			Steps   []domain.ProgressStep `json:"steps,omitempty"`
		}{e.Type, e.Stage, e.Percent, e.Current, e.Total, e.Steps})

	case TypeCreatorStart, TypeCreatorEnd, TypeDiscussionTurnEnd:
		return json.Marshal(struct {
			Type      EventType `json:"type"`
			CreatorID string    `json:"creatorId"`
			Name      string    `json:"name,omitempty"`
		}{e.Type, e.CreatorID, e.Name})

	case TypeDiscussionTurn:
		var replyTo *string
		if e.ReplyTo != "" {
			replyTo = &e.ReplyTo
		}
		return json.Marshal(struct {
			Type        EventType `json:"type"`
			CreatorID   string    `json:"creatorId"`
			CreatorName string    `json:"creatorName"`
			ReplyTo     *string   `json:"replyTo"`
		}{e.Type, e.CreatorID, e.CreatorName, replyTo})

	case TypeDiscussionStart, TypeDiscussionEnd, TypeDiscussionFinal, TypeDiscussionFinalEnd:
		return json.Marshal(struct {
			Type EventType `json:"type"`
		}{e.Type})

	case TypeVideoList:
		videos := e.Videos
		if videos == nil {
			videos = []domain.VideoItem{}
		}
		return json.Marshal(struct {
			Type   EventType          `json:"type"`
			Videos []domain.VideoItem `json:"videos"`
		}{e.Type, videos})
	}

	return nil, fmt.Errorf("unknown event type %q", e.Type)
}

// UnmarshalJSON decodes any wire message. Untagged messages must carry
// choices to count as text.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	if w.Type == TypeText {
		if len(w.Choices) == 0 {
			return fmt.Errorf("untagged message without choices")
		}
		*e = Text(w.Choices[0].Delta.Content)
		return nil
	}

	*e = Event{
		Type:        w.Type,
		Stage:       w.Stage,
		Percent:     w.Percent,
		Current:     w.Current,
		Total:       w.Total,
		Steps:       w.Steps,
		CreatorID:   w.CreatorID,
		Name:        w.Name,
		CreatorName: w.CreatorName,
		Videos:      w.Videos,
	}
	if w.ReplyTo != nil {
		e.ReplyTo = *w.ReplyTo
	}
	return nil
}
