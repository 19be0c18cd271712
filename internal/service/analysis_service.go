package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/buzzteacher/internal/config"
	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/progress"
	"github.com/iconidentify/buzzteacher/internal/stats"
	"github.com/iconidentify/buzzteacher/internal/worker"
)

// AnalysisState is the coarse state of one orchestration run.
type AnalysisState string

const (
	StateNotStarted   AnalysisState = "not_started"
	StateRouting      AnalysisState = "routing"
	StateRunningSteps AnalysisState = "running_steps"
	StateDone         AnalysisState = "done"
)

// Outcome errors recorded on profile videos.
const (
	OutcomeDownloadFailed = "download failed"
	OutcomeAnalysisFailed = "analysis failed"
)

const videoMIMEType = "video/mp4"

// ProgressFunc receives every progress report of a run, in order.
type ProgressFunc func(domain.ProgressUpdate)

// AnalysisResult is what a run produces. Context is never empty once a
// plan was selected; Videos is only set on the profile path.
type AnalysisResult struct {
	Target      domain.PlatformTarget
	State       AnalysisState
	Context     string
	Videos      []domain.VideoItem
	Limitations []string
	Tracker     *progress.Tracker
}

// AnalysisService runs the per-platform step plans. It never aborts: every
// collaborator failure becomes a step error plus a limitations bullet.
type AnalysisService struct {
	clients      Clients
	scheduler    *worker.Scheduler
	profileCount int
	now          func() time.Time
	logger       *slog.Logger
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(
	clients Clients,
	scheduler *worker.Scheduler,
	cfg config.AnalysisConfig,
	logger *slog.Logger,
) *AnalysisService {
	count := cfg.ProfileVideoCount
	if count <= 0 {
		count = 10
	}
	return &AnalysisService{
		clients:      clients,
		scheduler:    scheduler,
		profileCount: count,
		now:          time.Now,
		logger:       logger,
	}
}

// Analyze runs the plan selected for target and returns the assembled
// context. Targets without a URL return immediately in StateDone with an
// empty context.
func (s *AnalysisService) Analyze(ctx context.Context, target domain.PlatformTarget, onProgress ProgressFunc) *AnalysisResult {
	result := &AnalysisResult{Target: target, State: StateNotStarted}
	if onProgress == nil {
		onProgress = func(domain.ProgressUpdate) {}
	}

	result.State = StateRouting
	plan, ok := progress.PlanFor(target)
	if !ok {
		result.State = StateDone
		return result
	}

	r := &analysisRun{
		svc:        s,
		target:     target,
		tracker:    progress.NewTracker(plan),
		onProgress: onProgress,
		logger:     s.logger.With("plan", plan.Name, "url", target.RawURL),
	}
	result.Tracker = r.tracker
	result.State = StateRunningSteps

	r.logger.Info("analysis started")
	began := time.Now()

	r.writeHeader()
	switch {
	case target.IsProfile():
		r.profilePath(ctx)
	case target.Platform == domain.PlatformTikTok, target.Platform == domain.PlatformInstagram:
		r.videoPath(ctx)
	case target.Platform == domain.PlatformYouTube:
		r.youTubePath(ctx)
	default:
		r.recognizePath()
	}
	r.writeLimitations()

	result.Context = r.body.String()
	result.Videos = r.videos
	result.Limitations = r.limitations
	result.State = StateDone

	r.logger.Info("analysis finished",
		"limitations", len(r.limitations),
		"videos", len(r.videos),
		"duration", time.Since(began),
	)
	return result
}

// analysisRun is the state of one Analyze call. Only the goroutine that
// called Analyze touches it.
type analysisRun struct {
	svc        *AnalysisService
	target     domain.PlatformTarget
	tracker    *progress.Tracker
	onProgress ProgressFunc
	logger     *slog.Logger

	stage       string
	body        strings.Builder
	limitations []string
	videos      []domain.VideoItem
}

func (r *analysisRun) emit(u domain.ProgressUpdate) {
	r.onProgress(u)
}

func (r *analysisRun) begin(id domain.StepID, stage string, percent int) {
	if err := r.tracker.Start(id); err != nil {
		r.logger.Warn("step start rejected", "step", id, "error", err)
	}
	r.stage = stage
	r.emit(r.tracker.Update(stage, percent))
}

func (r *analysisRun) complete(id domain.StepID, detail string) {
	if err := r.tracker.Complete(id, detail); err != nil {
		r.logger.Warn("step completion rejected", "step", id, "error", err)
	}
	r.emit(r.tracker.Update(r.stage, r.tracker.Percent()))
}

// degrade fails a step, records the limitation and keeps going.
func (r *analysisRun) degrade(id domain.StepID, detail, limitation string, cause error) {
	r.logger.Warn("step degraded", "step", id, "error", domain.NewStepFailure(id, cause))
	if err := r.tracker.Fail(id, detail); err != nil {
		r.logger.Warn("step failure rejected", "step", id, "error", err)
	}
	r.limit(limitation)
	r.emit(r.tracker.Update(r.stage, r.tracker.Percent()))
}

func (r *analysisRun) skip(id domain.StepID, detail string) {
	if err := r.tracker.Skip(id, detail); err != nil {
		r.logger.Warn("step skip rejected", "step", id, "error", err)
	}
}

func (r *analysisRun) limit(bullet string) {
	if bullet != "" {
		r.limitations = append(r.limitations, bullet)
	}
}

func (r *analysisRun) writeHeader() {
	platform := r.target.Platform.String()
	if r.target.IsProfile() {
		platform += " (account)"
	}
	fmt.Fprintf(&r.body, "## Target video\n- URL: %s\n- Platform: %s\n\n", r.target.RawURL, platform)
}

func (r *analysisRun) writeLimitations() {
	if len(r.limitations) == 0 {
		return
	}
	r.body.WriteString("### Analysis limitations\n")
	for _, l := range r.limitations {
		fmt.Fprintf(&r.body, "- %s\n", l)
	}
	r.body.WriteString("\n*Advice below is based only on the information above.*\n")
}

func (r *analysisRun) videoPath(ctx context.Context) {
	p := r.target.Platform

	r.begin(domain.StepInsight, fmt.Sprintf("Fetching %s insights...", p), 10)
	ins, err := r.svc.fetchInsight(ctx, p, r.target.RawURL)
	if err != nil {
		r.degrade(domain.StepInsight, "unavailable",
			fmt.Sprintf("%s insights could not be fetched (missing API key or private video)", p), err)
	} else {
		writeInsight(&r.body, ins)
		r.complete(domain.StepInsight, "")
	}

	r.begin(domain.StepDownload, "Downloading video...", 30)
	data, err := r.svc.download(ctx, p, r.target.RawURL)
	if err != nil {
		r.degrade(domain.StepDownload, OutcomeDownloadFailed,
			"The video could not be downloaded, so its content was not analyzed", err)
		r.skip(domain.StepAnalyze, "no video to analyze")
	} else {
		r.complete(domain.StepDownload, humanize.Bytes(uint64(len(data))))

		r.begin(domain.StepAnalyze, "Analyzing video with AI...", 50)
		r.runAnalyzer(ctx, domain.MediaSource{Data: data, MIMEType: videoMIMEType})
	}

	r.begin(domain.StepAdvice, "Generating advice...", 80)
}

func (r *analysisRun) youTubePath(ctx context.Context) {
	r.begin(domain.StepAnalyze, "Analyzing YouTube video with AI...", 30)
	r.runAnalyzer(ctx, domain.MediaSource{URL: r.target.RawURL})

	r.begin(domain.StepAdvice, "Generating advice...", 70)
}

func (r *analysisRun) recognizePath() {
	p := r.target.Platform
	r.begin(domain.StepRecognize, fmt.Sprintf("Recognizing %s URL...", p), 50)
	r.complete(domain.StepRecognize, "not supported")
	r.limit(fmt.Sprintf("%s video analysis is not supported; advice is based on the URL only", p))

	r.begin(domain.StepAdvice, "Generating advice...", 70)
}

func (r *analysisRun) runAnalyzer(ctx context.Context, src domain.MediaSource) {
	text, err := r.svc.analyze(ctx, src)
	if err != nil {
		r.degrade(domain.StepAnalyze, OutcomeAnalysisFailed, "AI video analysis failed", err)
		return
	}
	fmt.Fprintf(&r.body, "### Gemini analysis\n%s\n\n", text)
	r.complete(domain.StepAnalyze, "")
}

func (r *analysisRun) profilePath(ctx context.Context) {
	r.begin(domain.StepProfile, "Fetching account videos...", 5)
	profile, err := r.svc.listVideos(ctx, r.target.RawURL)
	if err != nil {
		r.degrade(domain.StepProfile, "fetch failed",
			"The account's videos could not be fetched (missing API key or private account)", err)
		r.skip(domain.StepVideos, "no videos")
		r.skip(domain.StepAnalyze, "no videos")
		r.skip(domain.StepReport, "no videos")
		return
	}
	r.complete(domain.StepProfile, "@"+profile.Username)

	videos := profile.Videos
	count := fmt.Sprintf("%d videos", len(videos))

	r.begin(domain.StepVideos, "Computing statistics...", 10)
	if err := r.tracker.SetDetail(domain.StepVideos, count); err != nil {
		r.logger.Warn("step detail rejected", "step", domain.StepVideos, "error", err)
	}
	st := stats.Compute(videos)
	r.body.WriteString(QuantitativeReport(st, profile.Username, r.svc.now()))
	r.complete(domain.StepVideos, count)

	r.begin(domain.StepAnalyze, fmt.Sprintf("Analyzing videos (0/%d)...", len(videos)), 15)
	r.analyzeBatch(ctx, videos)

	succeeded := 0
	for i := range videos {
		if videos[i].Outcome.Succeeded() {
			succeeded++
		}
	}
	r.complete(domain.StepAnalyze, fmt.Sprintf("%d done", succeeded))
	if succeeded < len(videos) {
		r.limit(fmt.Sprintf("%d of %d videos could not be analyzed", len(videos)-succeeded, len(videos)))
	}

	r.body.WriteString(QualitativeSection(videos))
	r.body.WriteString("\n")
	r.body.WriteString(Ranking(videos))
	r.videos = VideoItems(videos)

	r.begin(domain.StepReport, "Building report...", 90)
	r.body.WriteString(Instructions())
	r.body.WriteString("\n")
	r.complete(domain.StepReport, "")

	r.emit(r.tracker.Update("Analysis complete", 100))
}

// analyzeBatch downloads and analyzes every video in batches and writes
// the outcomes back in place. Workers only return values; progress is
// reported from this goroutine after each batch.
func (r *analysisRun) analyzeBatch(ctx context.Context, videos []domain.VideoRecord) {
	if len(videos) == 0 {
		return
	}

	results := worker.Run(ctx, r.svc.scheduler, videos,
		func(ctx context.Context, _ int, v domain.VideoRecord) (domain.AnalysisOutcome, error) {
			data, err := r.svc.download(ctx, domain.PlatformTikTok, v.URL)
			if err != nil {
				return domain.AnalysisOutcome{Error: OutcomeDownloadFailed}, err
			}
			text, err := r.svc.analyze(ctx, domain.MediaSource{Data: data, MIMEType: videoMIMEType})
			if err != nil {
				return domain.AnalysisOutcome{Error: OutcomeAnalysisFailed}, err
			}
			return domain.AnalysisOutcome{Analysis: text}, nil
		},
		func(p worker.BatchProgress) {
			detail := fmt.Sprintf("%d/%d", p.Completed, p.Total)
			if err := r.tracker.SetDetail(domain.StepAnalyze, detail); err != nil {
				r.logger.Warn("step detail rejected", "step", domain.StepAnalyze, "error", err)
			}
			percent := 15 + p.Completed*70/p.Total
			r.emit(r.tracker.Counted(fmt.Sprintf("Analyzing videos (%s)...", detail), percent, p.Completed, p.Total))
		},
	)

	for i, res := range results {
		outcome := res.Value
		if res.Err != nil {
			if outcome.Error == "" {
				outcome.Error = OutcomeAnalysisFailed
			}
			r.logger.Warn("video analysis degraded", "video_id", videos[i].ID, "reason", outcome.Error, "error", res.Err)
		}
		videos[i].Outcome = &outcome
	}
}

func writeInsight(b *strings.Builder, ins *domain.InsightRecord) {
	b.WriteString("### Insights\n")
	fmt.Fprintf(b, "- Views: %s\n", countOrUnavailable(ins.Views))
	fmt.Fprintf(b, "- Likes: %s\n", countOrUnavailable(ins.Likes))
	fmt.Fprintf(b, "- Comments: %s\n", countOrUnavailable(ins.Comments))
	fmt.Fprintf(b, "- Shares: %s\n", countOrUnavailable(ins.Shares))
	fmt.Fprintf(b, "- Saves: %s\n", countOrUnavailable(ins.Saves))
	if ins.DurationSec != nil {
		fmt.Fprintf(b, "- Duration: %ds\n\n", *ins.DurationSec)
	} else {
		b.WriteString("- Duration: unavailable\n\n")
	}
}

func countOrUnavailable(v *int64) string {
	if v == nil {
		return "unavailable"
	}
	return humanize.Comma(*v)
}

func (s *AnalysisService) fetchInsight(ctx context.Context, p domain.Platform, url string) (*domain.InsightRecord, error) {
	client, ok := s.clients.Insight[p]
	if !ok || client == nil {
		return nil, fmt.Errorf("no insight client for %s: %w", p, domain.ErrUnavailable)
	}
	ins, err := client.FetchInsight(ctx, url)
	if err != nil {
		return nil, err
	}
	if ins == nil {
		return nil, domain.ErrUnavailable
	}
	return ins, nil
}

func (s *AnalysisService) download(ctx context.Context, p domain.Platform, url string) ([]byte, error) {
	client, ok := s.clients.Media[p]
	if !ok || client == nil {
		return nil, fmt.Errorf("no media client for %s: %w", p, domain.ErrUnavailable)
	}
	data, err := client.DownloadVideo(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.ErrUnavailable
	}
	return data, nil
}

func (s *AnalysisService) analyze(ctx context.Context, src domain.MediaSource) (string, error) {
	if s.clients.Analyzer == nil {
		return "", fmt.Errorf("no content analyzer: %w", domain.ErrUnavailable)
	}
	text, err := s.clients.Analyzer.Analyze(ctx, src)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrAnalysisFailed
	}
	return text, nil
}

func (s *AnalysisService) listVideos(ctx context.Context, url string) (*domain.Profile, error) {
	if s.clients.Profiles == nil {
		return nil, fmt.Errorf("no profile client: %w", domain.ErrUnavailable)
	}
	profile, err := s.clients.Profiles.ListVideos(ctx, url, s.profileCount)
	if err != nil {
		return nil, err
	}
	if profile == nil || len(profile.Videos) == 0 {
		return nil, domain.ErrUnavailable
	}
	return profile, nil
}
