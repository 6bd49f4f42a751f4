// Package enrich runs the staged generation pipeline that turns a scraped
// lead into a reviewable outreach package.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/llm"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

// Stage names a step of the enrichment state machine.
type Stage string

const (
	StageBrandAnalysis Stage = "brand_analysis"
	StageAppConcept    Stage = "app_concept"
	StageImagePrompt   Stage = "image_prompt"
	StageMockup        Stage = "mockup"
	StageEmail         Stage = "email"
	StageDone          Stage = "done"
)

// Stages lists the generation stages in execution order.
var Stages = []Stage{StageBrandAnalysis, StageAppConcept, StageImagePrompt, StageMockup, StageEmail}

func (s Stage) next() Stage {
	for i, st := range Stages {
		if st == s && i+1 < len(Stages) {
			return Stages[i+1]
		}
	}
	return StageDone
}

// GenerationError reports a stage failure. It is fatal for the lead.
type GenerationError struct {
	Stage  Stage
	LeadID int64
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("enrich: lead %d: %s: %v", e.LeadID, e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Snapshot is the state of one lead between stages. Transition never mutates
// its input; each stage returns a new Snapshot carrying all prior outputs.
type Snapshot struct {
	Lead          model.Lead
	Stage         Stage
	BrandAnalysis *model.BrandAnalysis
	AppConcept    *model.AppConcept
	ImagePrompt   string
	MockupPath    string
	EmailContent  string
}

// NewSnapshot starts a lead at the first stage.
func NewSnapshot(lead model.Lead) Snapshot {
	return Snapshot{Lead: lead, Stage: StageBrandAnalysis}
}

// Done reports whether every stage has completed.
func (s Snapshot) Done() bool { return s.Stage == StageDone }

// Artifacts returns the outputs persisted on success. Only valid once Done.
func (s Snapshot) Artifacts() model.LeadArtifacts {
	var a model.LeadArtifacts
	if s.BrandAnalysis != nil {
		a.BrandAnalysis = *s.BrandAnalysis
	}
	if s.AppConcept != nil {
		a.AppConcept = *s.AppConcept
	}
	a.MockupPath = s.MockupPath
	a.EmailContent = s.EmailContent
	return a
}

// Timeouts bounds each collaborator call.
type Timeouts struct {
	Text  time.Duration
	Image time.Duration
}

// DefaultTimeouts are 60s for text generation and 120s for images.
var DefaultTimeouts = Timeouts{Text: 60 * time.Second, Image: 120 * time.Second}

// Machine executes single stage transitions against the generation
// collaborators.
type Machine struct {
	content  ContentFetcher
	text     llm.TextGenerator
	images   llm.ImageGenerator
	mockups  MockupWriter
	timeouts Timeouts
	retry    resilience.RetryConfig
	metrics  *metrics.Metrics
	now      func() time.Time
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithTimeouts overrides the per-call timeouts.
func WithTimeouts(t Timeouts) MachineOption {
	return func(m *Machine) { m.timeouts = t }
}

// WithRetry sets the retry policy for transient collaborator failures.
func WithRetry(cfg resilience.RetryConfig) MachineOption {
	return func(m *Machine) { m.retry = cfg }
}

// WithStageMetrics records per-stage durations.
func WithStageMetrics(mt *metrics.Metrics) MachineOption {
	return func(m *Machine) { m.metrics = mt }
}

// WithClock overrides time.Now for generated timestamps.
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) { m.now = now }
}

// NewMachine creates a Machine.
func NewMachine(content ContentFetcher, text llm.TextGenerator, images llm.ImageGenerator, mockups MockupWriter, opts ...MachineOption) *Machine {
	m := &Machine{
		content:  content,
		text:     text,
		images:   images,
		mockups:  mockups,
		timeouts: DefaultTimeouts,
		retry:    resilience.DefaultRetryConfig(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	if m.timeouts.Text <= 0 {
		m.timeouts.Text = DefaultTimeouts.Text
	}
	if m.timeouts.Image <= 0 {
		m.timeouts.Image = DefaultTimeouts.Image
	}
	return m
}

// Transition runs the snapshot's current stage and returns the next
// snapshot. A failed stage yields a *GenerationError and the input snapshot.
func (m *Machine) Transition(ctx context.Context, s Snapshot) (Snapshot, error) {
	if s.Done() {
		return s, nil
	}

	start := time.Now()
	next, err := m.run(ctx, s)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.metrics.ObserveStage(string(s.Stage), outcome, time.Since(start))

	if err != nil {
		return s, &GenerationError{Stage: s.Stage, LeadID: s.Lead.ID, Err: err}
	}
	next.Stage = s.Stage.next()
	return next, nil
}

// Run advances the snapshot until every stage is complete or one fails.
func (m *Machine) Run(ctx context.Context, s Snapshot) (Snapshot, error) {
	for !s.Done() {
		next, err := m.Transition(ctx, s)
		if err != nil {
			return s, err
		}
		s = next
	}
	return s, nil
}

func (m *Machine) run(ctx context.Context, s Snapshot) (Snapshot, error) {
	switch s.Stage {
	case StageBrandAnalysis:
		return m.brandAnalysis(ctx, s)
	case StageAppConcept:
		return m.appConcept(ctx, s)
	case StageImagePrompt:
		return m.imagePrompt(ctx, s)
	case StageMockup:
		return m.mockup(ctx, s)
	case StageEmail:
		return m.email(ctx, s)
	default:
		return s, eris.Errorf("unknown stage %q", s.Stage)
	}
}

func (m *Machine) brandAnalysis(ctx context.Context, s Snapshot) (Snapshot, error) {
	url := s.Lead.WebsiteURL
	content, err := m.content.FetchText(ctx, url)
	if err != nil || strings.TrimSpace(content) == "" {
		zap.L().Warn("enrich: website content unavailable",
			zap.Int64("lead_id", s.Lead.ID),
			zap.String("url", url),
			zap.Error(err),
		)
		content = unreachableContent(url)
	}

	analysis, err := m.generate(ctx, brandAnalysisSystem, buildBrandAnalysisPrompt(url, content))
	if err != nil {
		return s, err
	}
	s.BrandAnalysis = &model.BrandAnalysis{
		WebsiteURL:     url,
		Analysis:       analysis,
		ScrapedContent: truncateRunes(content, sampleContentChars),
	}
	return s, nil
}

func (m *Machine) appConcept(ctx context.Context, s Snapshot) (Snapshot, error) {
	if s.BrandAnalysis == nil {
		return s, eris.New("missing brand analysis")
	}
	concepts, err := m.generate(ctx, appConceptSystem, buildAppConceptPrompt(s.BrandAnalysis))
	if err != nil {
		return s, err
	}
	s.AppConcept = &model.AppConcept{
		BrandAnalysis: s.BrandAnalysis.Analysis,
		Concepts:      concepts,
		GeneratedAt:   m.now().UTC(),
	}
	return s, nil
}

func (m *Machine) imagePrompt(ctx context.Context, s Snapshot) (Snapshot, error) {
	if s.BrandAnalysis == nil || s.AppConcept == nil {
		return s, eris.New("missing brand analysis or app concept")
	}
	prompt, err := m.generate(ctx, imagePromptSystem, buildImagePromptPrompt(s.BrandAnalysis, s.AppConcept))
	if err != nil {
		return s, err
	}
	s.ImagePrompt = strings.TrimSpace(prompt)
	return s, nil
}

func (m *Machine) mockup(ctx context.Context, s Snapshot) (Snapshot, error) {
	if s.ImagePrompt == "" {
		return s, eris.New("missing image prompt")
	}
	img, err := resilience.DoVal(ctx, m.retryConfig("generate_image"), func(ctx context.Context) ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, m.timeouts.Image)
		defer cancel()
		return m.images.GenerateImage(callCtx, s.ImagePrompt+mockupSuffix)
	})
	if err != nil {
		return s, err
	}
	path, err := m.mockups.WriteMockup(s.Lead.CompanyName, img)
	if err != nil {
		return s, err
	}
	s.MockupPath = path
	return s, nil
}

func (m *Machine) email(ctx context.Context, s Snapshot) (Snapshot, error) {
	if s.BrandAnalysis == nil || s.AppConcept == nil {
		return s, eris.New("missing brand analysis or app concept")
	}
	content, err := m.generate(ctx, emailSystem, buildEmailPrompt(s.Lead, s.BrandAnalysis, s.AppConcept))
	if err != nil {
		return s, err
	}
	s.EmailContent = content
	return s, nil
}

func (m *Machine) generate(ctx context.Context, system, prompt string) (string, error) {
	return resilience.DoVal(ctx, m.retryConfig("generate_text"), func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, m.timeouts.Text)
		defer cancel()
		return m.text.Generate(callCtx, system, prompt)
	})
}

func (m *Machine) retryConfig(op string) resilience.RetryConfig {
	cfg := m.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("enrich", op)
	}
	return cfg
}
