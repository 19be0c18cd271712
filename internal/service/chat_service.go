package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/platform"
	"github.com/iconidentify/buzzteacher/internal/stream"
)

// Stage labels of the chat pipeline.
const (
	StageStarting   = "Starting analysis..."
	StageGenerating = "Generating advice..."
	StageComplete   = "Analysis complete"
)

// ChatRequest is one chat turn.
type ChatRequest struct {
	Messages         []domain.ChatMessage
	Personas         []string
	DiscussionMode   bool
	PreviousAnalyses []domain.PersonaSection
	ConversationID   domain.ConversationID
}

// UserMessage returns the newest message.
func (r ChatRequest) UserMessage() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

// History returns every message before the newest one.
func (r ChatRequest) History() []domain.ChatMessage {
	if len(r.Messages) == 0 {
		return nil
	}
	return r.Messages[:len(r.Messages)-1]
}

// ChatService runs the full chat pipeline: classify, analyze, advise or
// debate, and persist the exchange.
type ChatService struct {
	analysis      *AnalysisService
	advice        *AdviceService
	debate        *DebateService
	conversations *ConversationService
	logger        *slog.Logger
}

// NewChatService creates a new chat service. conversations may be nil.
func NewChatService(
	analysis *AnalysisService,
	advice *AdviceService,
	debate *DebateService,
	conversations *ConversationService,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		analysis:      analysis,
		advice:        advice,
		debate:        debate,
		conversations: conversations,
		logger:        logger,
	}
}

// Validate rejects requests that must fail before any streaming starts.
func (s *ChatService) Validate(ctx context.Context, req ChatRequest) error {
	if len(req.Messages) == 0 {
		return domain.ErrNoMessages
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != domain.RoleUser {
		return domain.ErrLastMessageNotUser
	}
	if req.DiscussionMode {
		if err := s.debate.Validate(req.PreviousAnalyses); err != nil {
			return err
		}
	} else if strings.TrimSpace(last.Content) == "" {
		return domain.ErrEmptyContent
	}
	if req.ConversationID != "" {
		if s.conversations == nil {
			return fmt.Errorf("%w: conversations are not enabled", domain.ErrInvalidRequest)
		}
		if _, err := s.conversations.Get(ctx, req.ConversationID); err != nil {
			return err
		}
	}
	return nil
}

// Stream writes every event of the turn to sink. The caller validates the
// request first and writes the terminal sentinel afterwards. Only sink
// failures and cancellation are returned.
func (s *ChatService) Stream(ctx context.Context, sink stream.Sink, req ChatRequest) error {
	logger := s.logger
	if req.ConversationID != "" {
		logger = logger.With("conversation_id", req.ConversationID)
	}

	var assembler *stream.Assembler
	if req.ConversationID != "" && s.conversations != nil {
		s.persist(ctx, logger, req.ConversationID, AppendRequest{
			Role:     domain.RoleUser,
			Content:  req.UserMessage(),
			Personas: req.Personas,
		})
		assembler = stream.NewAssembler()
		sink = stream.Tee{sink, assembler}
	}

	var err error
	if req.DiscussionMode {
		logger.Info("discussion started", "participants", len(req.PreviousAnalyses))
		err = s.debate.Run(ctx, sink, req.PreviousAnalyses)
	} else {
		err = s.advise(ctx, logger, sink, req)
	}
	if err != nil {
		return err
	}

	if assembler != nil {
		if content := assembler.Content(); content != "" {
			s.persist(ctx, logger, req.ConversationID, AppendRequest{
				Role:     domain.RoleAssistant,
				Content:  content,
				Personas: req.Personas,
				Sections: assembler.Sections(),
			})
		}
	}
	return nil
}

func (s *ChatService) advise(ctx context.Context, logger *slog.Logger, sink stream.Sink, req ChatRequest) error {
	if err := sink.Send(stream.Progress(domain.ProgressUpdate{Stage: StageStarting, Percent: domain.Percent(0)})); err != nil {
		return err
	}

	target := platform.Classify(req.UserMessage())
	logger.Info("chat turn classified",
		"kind", target.Kind,
		"platform", target.Platform,
		"personas", len(req.Personas),
	)

	var sendErr error
	result := s.analysis.Analyze(ctx, target, func(u domain.ProgressUpdate) {
		if sendErr == nil {
			sendErr = sink.Send(stream.Progress(u))
		}
	})
	if sendErr != nil {
		return sendErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := sink.Send(stream.Stage(StageGenerating)); err != nil {
		return err
	}

	err := s.advice.Respond(ctx, sink, AdviceRequest{
		PersonaIDs:      req.Personas,
		History:         req.History(),
		UserMessage:     req.UserMessage(),
		AnalysisContext: result.Context,
	})
	if err != nil {
		return err
	}

	if t := result.Tracker; t != nil && t.Has(domain.StepAdvice) {
		if err := t.Complete(domain.StepAdvice, ""); err != nil {
			logger.Warn("advice step completion rejected", "error", err)
		}
		if err := sink.Send(stream.Progress(t.Update(StageComplete, 100))); err != nil {
			return err
		}
	}

	if len(result.Videos) > 0 {
		if err := sink.Send(stream.VideoList(result.Videos)); err != nil {
			return err
		}
	}
	return nil
}

func (s *ChatService) persist(ctx context.Context, logger *slog.Logger, id domain.ConversationID, req AppendRequest) {
	if _, err := s.conversations.Append(ctx, id, req); err != nil {
		logger.Warn("failed to persist message", "role", req.Role, "error", err)
	}
}
