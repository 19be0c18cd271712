package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/stream"
)

// DebateRetryMessage is shown when no discussion could be produced.
const DebateRetryMessage = "An error occurred while generating the discussion. Press Regenerate to try again."

const finalTurnType = "final"

var (
	jsonFenceRe = regexp.MustCompile("(?i)```json\\s*")
	fenceRe     = regexp.MustCompile("```\\s*")
)

// DebateService simulates a discussion between personas from their earlier
// analyses. The whole script is generated in one completion and then
// replayed through a Pacer, so the streaming on the wire is paced, not live.
type DebateService struct {
	completion CompletionService
	pacer      stream.Pacer
	logger     *slog.Logger
}

// NewDebateService creates a new debate service.
func NewDebateService(completion CompletionService, pacer stream.Pacer, logger *slog.Logger) *DebateService {
	return &DebateService{
		completion: completion,
		pacer:      pacer,
		logger:     logger,
	}
}

// Validate checks that a discussion can run on analyses.
func (s *DebateService) Validate(analyses []domain.PersonaSection) error {
	if len(analyses) < 2 {
		return fmt.Errorf("%w: got %d", domain.ErrInsufficientAnalyses, len(analyses))
	}
	return nil
}

// Run generates the discussion and replays it to sink between
// discussion_start and discussion_end. A completion or parse failure is
// replaced by a single retry turn.
func (s *DebateService) Run(ctx context.Context, sink stream.Sink, analyses []domain.PersonaSection) error {
	if err := s.Validate(analyses); err != nil {
		return err
	}

	if err := sink.Send(stream.DiscussionStart()); err != nil {
		return err
	}

	script := s.generate(ctx, analyses)
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, turn := range script.Turns {
		if err := sink.Send(stream.DiscussionTurn(turn.PersonaID, turn.PersonaName, turn.ReplyTo)); err != nil {
			return err
		}
		if err := s.pacer.Replay(ctx, sink, turn.Text); err != nil {
			return err
		}
		if err := sink.Send(stream.DiscussionTurnEnd(turn.PersonaID)); err != nil {
			return err
		}
		if err := s.pacer.BetweenTurns(ctx); err != nil {
			return err
		}
	}

	if script.Final != nil {
		if err := sink.Send(stream.DiscussionFinal()); err != nil {
			return err
		}
		if err := s.pacer.Replay(ctx, sink, script.Final.Text); err != nil {
			return err
		}
		if err := sink.Send(stream.DiscussionFinalEnd()); err != nil {
			return err
		}
	}

	return sink.Send(stream.DiscussionEnd())
}

func (s *DebateService) generate(ctx context.Context, analyses []domain.PersonaSection) domain.DebateScript {
	text, err := s.completion.Complete(ctx, DebatePrompt(analyses))
	if err != nil {
		s.logger.Error("discussion completion failed", "error", err)
		return FallbackScript(analyses)
	}

	script, err := ParseDebateResponse(text)
	if err != nil {
		s.logger.Warn("discussion parse failed", "error", err, "response", truncateRunes(text, 1000))
		return FallbackScript(analyses)
	}

	s.logger.Debug("discussion generated", "turns", len(script.Turns), "final", script.Final != nil)
	return script
}

type rawTurn struct {
	CreatorID   string  `json:"creatorId"`
	CreatorName string  `json:"creatorName"`
	Content     string  `json:"content"`
	ReplyTo     *string `json:"replyTo"`
	Type        string  `json:"type"`
}

// ParseDebateResponse extracts the discussion from a model response. Code
// fences are removed and only the text between the first '[' and the last
// ']' is decoded. The first entry typed "final" becomes the synthesis;
// other final entries and entries without content are dropped.
func ParseDebateResponse(text string) (domain.DebateScript, error) {
	cleaned := jsonFenceRe.ReplaceAllString(text, "")
	cleaned = strings.TrimSpace(fenceRe.ReplaceAllString(cleaned, ""))

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end == -1 || end <= start {
		return domain.DebateScript{}, fmt.Errorf("%w: no JSON array found", domain.ErrDebateParse)
	}

	var raw []rawTurn
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &raw); err != nil {
		return domain.DebateScript{}, fmt.Errorf("%w: %v", domain.ErrDebateParse, err)
	}

	var script domain.DebateScript
	for _, r := range raw {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		if r.Type == finalTurnType {
			if script.Final == nil {
				script.Final = &domain.DebateFinal{Text: r.Content}
			}
			continue
		}
		turn := domain.DebateTurn{
			PersonaID:   r.CreatorID,
			PersonaName: r.CreatorName,
			Text:        r.Content,
		}
		if r.ReplyTo != nil {
			turn.ReplyTo = *r.ReplyTo
		}
		script.Turns = append(script.Turns, turn)
	}

	if len(script.Turns) == 0 && script.Final == nil {
		return domain.DebateScript{}, fmt.Errorf("%w: empty discussion", domain.ErrDebateParse)
	}
	return script, nil
}

// FallbackScript is a single turn asking the user to retry, attributed to
// the first participant.
func FallbackScript(analyses []domain.PersonaSection) domain.DebateScript {
	turn := domain.DebateTurn{
		PersonaID:   "unknown",
		PersonaName: "System",
		Text:        DebateRetryMessage,
	}
	if len(analyses) > 0 {
		if analyses[0].PersonaID != "" {
			turn.PersonaID = analyses[0].PersonaID
		}
		if analyses[0].PersonaName != "" {
			turn.PersonaName = analyses[0].PersonaName
		}
	}
	return domain.DebateScript{Turns: []domain.DebateTurn{turn}}
}

// DebatePrompt builds the single completion request that produces the
// whole discussion as a JSON array.
func DebatePrompt(analyses []domain.PersonaSection) string {
	var views strings.Builder
	for i, a := range analyses {
		if i > 0 {
			views.WriteString("\n\n")
		}
		fmt.Fprintf(&views, "### %s's view\n%s", a.PersonaName, a.Content)
	}

	firstID, firstName := "creator1", "Creator1"
	secondID, secondName := "creator2", "Creator2"
	if len(analyses) > 0 {
		firstID, firstName = analyses[0].PersonaID, analyses[0].PersonaName
	}
	if len(analyses) > 1 {
		secondID, secondName = analyses[1].PersonaID, analyses[1].PersonaName
	}

	var b strings.Builder
	b.WriteString("You are the BuzzTeacher discussion coordinator.\n")
	b.WriteString("Using the judges' views below, simulate them talking to each other.\n\n")
	b.WriteString("## Each judge's analysis\n")
	b.WriteString(views.String())
	b.WriteString(`

## Discussion rules
1. Keep each judge's distinctive viewpoint, grounded in their own method
2. **Evaluate critically**
   - Good points: what exactly works and why
   - Problems: what is missing and why it needs fixing
   - Alternatives: what they would do with their own method
3. **Be tough but constructive**
   - Never simply agree; always bring a different angle or an improvement
   - "X works, but Y is weak", "I disagree with X"
   - Pair every criticism with a concrete fix
4. Drive toward a practical conclusion
5. Keep each turn to about 100-200 characters
6. **Also debate the structure plan and narration plan critically**
7. **Finish with a "final integrated plan"** that adopts the strongest points and fixes the criticized ones

## Forbidden
- Turns that end with "nice", "great" or "I agree"
- Full agreement without criticism
- Ratings without concrete reasons

## Output format
Output a JSON array. Each object is one turn.
replyTo is the creatorId being answered (null for the first turn).
Produce 5-8 turns (everyone speaks at least twice), then append the final integrated plan.

` + "```json\n")
	fmt.Fprintf(&b, "[\n  {\"creatorId\": %q, \"creatorName\": %q, \"content\": \"...\", \"replyTo\": null},\n", firstID, firstName)
	fmt.Fprintf(&b, "  {\"creatorId\": %q, \"creatorName\": %q, \"content\": \"...\", \"replyTo\": %q},\n", secondID, secondName, firstID)
	b.WriteString("  ...,\n")
	b.WriteString(`  {"type": "final", "content": "## 🏆 Final integrated plan\n\n### 📝 Structure (timeline)\n| Time | Content | Point |\n|------|------|----------|\n| 0:00-0:02 | **Hook** | ... |\n| 0:02-0:07 | **Interest** | ... |\n| 0:07-0:XX | **Body** | ... |\n| End | **Comment prompt** | ... |\n\n### 🎤 Narration plan\n..."}` + "\n]\n```\n\n")
	b.WriteString("**Important**: the last object must have `\"type\": \"final\"`. Output JSON only, no explanation.")

	return b.String()
}
