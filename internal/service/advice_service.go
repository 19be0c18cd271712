package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iconidentify/buzzteacher/internal/config"
	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/persona"
	"github.com/iconidentify/buzzteacher/internal/stream"
)

const genericRole = "You are BuzzTeacher, a professional AI assistant for viral short-form video."

// AdviceRequest is one round of persona advice.
type AdviceRequest struct {
	PersonaIDs      []string
	History         []domain.ChatMessage
	UserMessage     string
	AnalysisContext string
}

// AdviceService streams persona advice. A single persona streams bare
// text; several personas run strictly one after another, each framed by
// start and end markers.
type AdviceService struct {
	completion     CompletionService
	catalog        *persona.Catalog
	defaultPersona string
	logger         *slog.Logger
}

// NewAdviceService creates a new advice service.
func NewAdviceService(
	completion CompletionService,
	catalog *persona.Catalog,
	cfg config.AnalysisConfig,
	logger *slog.Logger,
) *AdviceService {
	return &AdviceService{
		completion:     completion,
		catalog:        catalog,
		defaultPersona: cfg.DefaultPersona,
		logger:         logger,
	}
}

// Respond writes the advice for req to sink. Completion failures are
// reported in-band; only a failing sink or a cancelled ctx is returned.
func (s *AdviceService) Respond(ctx context.Context, sink stream.Sink, req AdviceRequest) error {
	ids := req.PersonaIDs
	if len(ids) == 0 && s.defaultPersona != "" {
		ids = []string{s.defaultPersona}
	}

	if len(ids) <= 1 {
		var p *domain.Persona
		if len(ids) == 1 {
			if found, ok := s.catalog.Get(ids[0]); ok {
				p = &found
			} else {
				s.logger.Warn("unknown persona, using generic role", "persona", ids[0])
			}
		}
		return s.single(ctx, sink, p, req)
	}

	known := make([]domain.Persona, 0, len(ids))
	for _, id := range ids {
		p, ok := s.catalog.Get(id)
		if !ok {
			s.logger.Warn("unknown persona skipped", "persona", id)
			continue
		}
		known = append(known, p)
	}
	if len(known) == 0 {
		return s.single(ctx, sink, nil, req)
	}

	for _, p := range known {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.section(ctx, sink, p, req); err != nil {
			return err
		}
	}
	return nil
}

func (s *AdviceService) single(ctx context.Context, sink stream.Sink, p *domain.Persona, req AdviceRequest) error {
	name := "BuzzTeacher"
	if p != nil {
		name = p.Name
	}

	err := s.stream(ctx, sink, p, req)
	var se *sinkError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &se):
		return se.err
	case ctx.Err() != nil:
		return ctx.Err()
	}

	s.logger.Error("advice completion failed", "persona", name, "error", err)
	return sink.Send(stream.Text("\n\n⚠️ An error occurred while generating advice.\n"))
}

func (s *AdviceService) section(ctx context.Context, sink stream.Sink, p domain.Persona, req AdviceRequest) error {
	if err := sink.Send(stream.CreatorStart(p.ID, p.Name)); err != nil {
		return err
	}

	err := s.stream(ctx, sink, &p, req)
	var se *sinkError
	switch {
	case err == nil:
	case errors.As(err, &se):
		return se.err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		s.logger.Error("persona completion failed", "persona", p.ID, "error", err)
		notice := fmt.Sprintf("\n\n⚠️ %s: an error occurred during analysis.\n", p.Name)
		if err := sink.Send(stream.Text(notice)); err != nil {
			return err
		}
	}

	return sink.Send(stream.CreatorEnd(p.ID))
}

// sinkError marks a failure of the output stream, as opposed to a failure
// of the completion itself.
type sinkError struct {
	err error
}

func (e *sinkError) Error() string { return e.err.Error() }

func (e *sinkError) Unwrap() error { return e.err }

func (s *AdviceService) stream(ctx context.Context, sink stream.Sink, p *domain.Persona, req AdviceRequest) error {
	knowledge := ""
	if p != nil {
		knowledge = s.catalog.Summary(p.ID)
	}

	creq := domain.CompletionRequest{
		SystemPrompt: BuildSystemPrompt(p, knowledge, req.AnalysisContext),
		History:      req.History,
		UserMessage:  req.UserMessage,
	}
	return s.completion.Stream(ctx, creq, func(fragment string) error {
		if fragment == "" {
			return nil
		}
		if err := sink.Send(stream.Text(fragment)); err != nil {
			return &sinkError{err: err}
		}
		return nil
	})
}

// BuildSystemPrompt assembles the persona role, its knowledge, the
// analysis context and the answer rules. A nil persona gets the generic role.
func BuildSystemPrompt(p *domain.Persona, knowledge, analysisContext string) string {
	var b strings.Builder

	if p != nil {
		fmt.Fprintf(&b, "You are BuzzTeacher, giving advice from the perspective of %q.\n", p.Name)
		fmt.Fprintf(&b, "Suggest concrete improvements from the angle of %s.\n\n", p.Description)
	} else {
		b.WriteString(genericRole + "\n\n")
	}

	b.WriteString(`## Your role
You give concrete advice for making short-form videos go viral.
Base practical, specific improvements on the knowledge below.

`)
	if knowledge != "" {
		b.WriteString(knowledge)
		b.WriteString("\n\n")
	}
	if analysisContext != "" {
		b.WriteString(analysisContext)
		b.WriteString("\n\n")
	}

	b.WriteString(`## Answer rules
1. List concrete improvements as bullet points
2. Ground each point in the knowledge
3. Suggest actions that can be tried right away
4. Avoid jargon and explain plainly
5. When a video URL is sent, base the advice on its analysis

## Answer format (video analysis)
### 📊 Current evaluation
[Evaluation based on the insights]

### ✅ Good points
[Strengths of the video]

### ⚠️ Improvements
[Concrete suggestions]

### 📝 Structure plan (timeline)
Present a structure plan for updating the video as a table:

| Time | Content | Point |
|------|------|----------|
| 0:00-0:02 | **Hook** | [power words, grab] |
| 0:02-0:07 | **Interest** | [problem, expectation] |
| 0:07-0:XX | **Body** | [pinch to resolution] |
| End | **Comment prompt** | [participation, question] |

Adjust the times to the length of the video.

### 🎤 Narration plan
Suggest concrete lines in this format:

**[0:00-0:02] Hook**
"[line with power words]"
→ Caption: [text shown on screen]

**[0:02-0:07] Interest**
"[line that builds expectation]"

**[0:07-] Body**
[flow and key lines]

**[End] Comment prompt**
"[question viewers want to answer]"

### 💡 Next actions
[What can be done right away]
`)

	return b.String()
}
