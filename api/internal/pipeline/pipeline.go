// Package pipeline runs one photo-to-guide invocation: encode, describe, build the
// prompt, generate instructions and, when asked, render an illustration alongside.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"truckbrick/api/internal/brick"
	"truckbrick/api/internal/config"
	"truckbrick/api/internal/guide"
	"truckbrick/api/internal/imagecodec"
	"truckbrick/api/internal/llm"
	"truckbrick/api/internal/logger"
	"truckbrick/api/internal/metrics"
	"truckbrick/api/internal/prompt"
	"truckbrick/api/internal/scale"
	"truckbrick/api/internal/util"
)

// Config holds the per-stage limits.
type Config struct {
	DescribeTimeout      time.Duration
	InstructionTimeout   time.Duration
	RenderTimeout        time.Duration
	DescribeMaxTokens    int
	InstructionMaxTokens int
	RenderSize           string
	RenderEnabled        bool
}

func ConfigFrom(c *config.Config) Config {
	return Config{
		DescribeTimeout:      c.DescribeTimeout,
		InstructionTimeout:   c.InstructionTimeout,
		RenderTimeout:        c.RenderTimeout,
		DescribeMaxTokens:    c.DescribeMaxTokens,
		InstructionMaxTokens: c.InstructionMaxTokens,
		RenderSize:           c.RenderSize,
		RenderEnabled:        c.RenderEnabled,
	}
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		DescribeTimeout:      60 * time.Second,
		InstructionTimeout:   120 * time.Second,
		RenderTimeout:        90 * time.Second,
		DescribeMaxTokens:    500,
		InstructionMaxTokens: 1800,
		RenderSize:           "1024x1024",
		RenderEnabled:        true,
	}
}

// Request is one invocation's input. Empty Style and Scale select the defaults
// (Mould King Technic, Medium). CustomPieces is read only for the custom preset.
// Image, when set, is an already decoded upright photo and Photo is ignored.
type Request struct {
	Photo        []byte
	Image        image.Image
	Style        string
	Scale        string
	CustomPieces int
	Render       bool
}

// Result is everything one invocation produced. Description, prompt and guide all
// come from the same photo.
type Result struct {
	ID        string                   `json:"id"`
	CreatedAt time.Time                `json:"created_at"`
	Engine    string                   `json:"engine"`
	Model     string                   `json:"model"`
	Params    brick.BuildRequestParams `json:"params"`
	Prompt    string                   `json:"prompt"`
	Guide     brick.BuildResult        `json:"guide"`
	Render    brick.RenderOutcome      `json:"render"`
}

// Meta is the export header for this result.
func (r *Result) Meta() guide.Meta {
	return guide.Meta{
		Date:        r.CreatedAt,
		Style:       r.Params.Style,
		ScaleLabel:  r.Params.ScaleLabel,
		ScaleText:   r.Params.ScaleText,
		Pieces:      r.Params.TargetPieces,
		Description: r.Params.TruckDescription,
		Render:      r.Render,
	}
}

// Document renders the downloadable markdown guide.
func (r *Result) Document() string {
	return guide.Document(r.Meta(), r.Guide)
}

func (r *Result) FileName() string {
	return guide.FileName(r.CreatedAt, r.Params.ScaleLabel)
}

type Pipeline struct {
	engine   llm.TextEngine
	renderer llm.Renderer
	catalog  *scale.Catalog
	cfg      Config
	log      logger.Logger
	now      func() time.Time
}

// New wires a pipeline. renderer may be nil, in which case renders are skipped.
func New(engine llm.TextEngine, renderer llm.Renderer, catalog *scale.Catalog, cfg Config, log logger.Logger) *Pipeline {
	if catalog == nil {
		catalog = scale.NewCatalog()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Pipeline{
		engine:   engine,
		renderer: renderer,
		catalog:  catalog,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// WithEngine returns a copy that describes and writes through e.
func (p *Pipeline) WithEngine(e llm.TextEngine) *Pipeline {
	cp := *p
	cp.engine = e
	return &cp
}

func (p *Pipeline) Catalog() *scale.Catalog { return p.catalog }

// CanRender reports whether a render stage would run when requested.
func (p *Pipeline) CanRender() bool {
	return p.cfg.RenderEnabled && p.renderer != nil
}

// Resolve validates the style and size choice without touching any service.
func (p *Pipeline) Resolve(req Request) (brick.Style, scale.Resolution, error) {
	style := brick.StyleMouldKingTechnic
	if strings.TrimSpace(req.Style) != "" {
		s, err := brick.ParseStyle(req.Style)
		if err != nil {
			return "", scale.Resolution{}, err
		}
		style = s
	}
	name := req.Scale
	if strings.TrimSpace(name) == "" {
		name = p.catalog.Default().Key
	}
	res, err := p.catalog.Resolve(name, req.CustomPieces)
	if err != nil {
		return "", scale.Resolution{}, err
	}
	return style, res, nil
}

// Run executes one invocation. Only the render stage degrades: every other failure
// returns a *brick.StandardError and no result.
func (p *Pipeline) Run(ctx context.Context, req Request) (_ *Result, err error) {
	id := uuid.NewString()
	engineName := "none"
	if p.engine != nil {
		engineName = p.engine.Name()
	}
	log := p.log.With(map[string]interface{}{"invocation_id": id, "engine": engineName})

	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()
	defer func() { metrics.Invocations.WithLabelValues(outcome(err)).Inc() }()

	if p.engine == nil {
		err = brick.NewConfigurationError("no generation engine configured")
		p.fail(log, err)
		return nil, err
	}

	style, size, err := p.Resolve(req)
	if err != nil {
		p.fail(log, err)
		return nil, err
	}
	log.Info("invocation started", map[string]interface{}{
		"style": style.String(), "scale": size.Preset.Key, "pieces": size.Pieces, "render": req.Render,
	})

	start := time.Now()
	img, err := encode(req)
	p.observe(brick.StageEncode, engineName, start)
	if err != nil {
		p.fail(log, err)
		return nil, err
	}

	t := time.Now()
	desc, err := p.describe(ctx, img)
	p.observe(brick.StageDescribe, engineName, t)
	if err != nil {
		p.fail(log, err)
		return nil, err
	}
	log.Debug("truck described", map[string]interface{}{"chars": len(desc), "preview": util.Truncate(desc.String(), 80)})

	preset := size.Preset
	params := brick.BuildRequestParams{
		Style:            style,
		TargetPieces:     size.Pieces,
		ScaleLabel:       preset.Label,
		ScaleRatio:       preset.ScaleRatio,
		ScaleText:        prompt.ScaleText(preset.IsCustom(), preset.Label, preset.ScaleRatio, size.Pieces),
		Custom:           preset.IsCustom(),
		TruckDescription: desc,
	}
	buildPrompt, err := prompt.Build(params)
	if err != nil {
		p.fail(log, err)
		return nil, err
	}

	var markdown string
	render := brick.RenderOutcome{State: brick.RenderSkipped}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		defer p.observe(brick.StageInstructions, engineName, t)
		out, err := p.write(gctx, buildPrompt)
		if err != nil {
			return err
		}
		markdown = out
		return nil
	})
	if req.Render && p.CanRender() {
		g.Go(func() error {
			t := time.Now()
			defer p.observe(brick.StageRender, p.renderer.Name(), t)
			render = p.render(gctx, log, params)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		p.fail(log, err)
		return nil, err
	}

	res := &Result{
		ID:        id,
		CreatedAt: p.now().UTC(),
		Engine:    engineName,
		Model:     p.engine.GetModel(),
		Params:    params,
		Prompt:    buildPrompt,
		Guide:     guide.Split(markdown),
		Render:    render,
	}
	log.Info("invocation finished", map[string]interface{}{
		"segmented":  res.Guide.Segmented,
		"render":     string(render.State),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return res, nil
}

func (p *Pipeline) describe(ctx context.Context, img brick.EncodedImage) (brick.TruckDescription, error) {
	sctx, cancel := context.WithTimeout(ctx, p.cfg.DescribeTimeout)
	defer cancel()

	out, err := p.engine.Describe(sctx, llm.DescribeRequest{
		System:    prompt.DescribeSystem,
		User:      prompt.DescribeUser,
		Image:     img,
		MaxTokens: p.cfg.DescribeMaxTokens,
	})
	if err != nil {
		return "", brick.NewDescriptionServiceError(withCause(sctx, err))
	}
	desc := strings.TrimSpace(out)
	if desc == "" {
		return "", brick.NewDescriptionServiceError(errors.New("empty description"))
	}
	return brick.TruckDescription(desc), nil
}

func (p *Pipeline) write(ctx context.Context, buildPrompt string) (string, error) {
	sctx, cancel := context.WithTimeout(ctx, p.cfg.InstructionTimeout)
	defer cancel()

	out, err := p.engine.Write(sctx, llm.WriteRequest{Prompt: buildPrompt, MaxTokens: p.cfg.InstructionMaxTokens})
	if err != nil {
		return "", brick.NewInstructionServiceError(withCause(sctx, err))
	}
	if strings.TrimSpace(out) == "" {
		return "", brick.NewInstructionServiceError(errors.New("empty instructions"))
	}
	return out, nil
}

// render never fails the invocation. A failure is logged and recorded in the outcome.
// ctx is the group context: once it is done the invocation has already failed
// elsewhere, so the aborted render is not reported as a render failure.
func (p *Pipeline) render(ctx context.Context, log logger.Logger, params brick.BuildRequestParams) brick.RenderOutcome {
	sctx, cancel := context.WithTimeout(ctx, p.cfg.RenderTimeout)
	defer cancel()

	ref, err := p.renderer.Render(sctx, llm.RenderRequest{
		Prompt: prompt.Render(params.TruckDescription, params.Style, params.ScaleText),
		Size:   p.cfg.RenderSize,
	})
	if err == nil && ref.URL == "" && len(ref.Data) == 0 {
		err = errors.New("no image returned")
	}
	if err != nil {
		rerr := brick.NewRenderServiceError(withCause(sctx, err))
		if ctx.Err() != nil {
			log.Debug("render aborted", map[string]interface{}{"cause": ctx.Err().Error()})
			return brick.RenderOutcome{State: brick.RenderFailed, Err: rerr}
		}
		metrics.StageFailures.WithLabelValues(string(brick.StageRender), string(rerr.Code)).Inc()
		log.WithError(rerr).Warn("render failed, continuing without image", nil)
		return brick.RenderOutcome{State: brick.RenderFailed, Err: rerr}
	}
	return brick.RenderOutcome{State: brick.RenderRendered, Ref: &ref}
}

func encode(req Request) (brick.EncodedImage, error) {
	if req.Image != nil {
		return imagecodec.EncodeImage(req.Image)
	}
	return imagecodec.Encode(req.Photo)
}

func (p *Pipeline) observe(stage brick.Stage, engine string, start time.Time) {
	metrics.StageDuration.WithLabelValues(string(stage), engine).Observe(time.Since(start).Seconds())
}

func (p *Pipeline) fail(log logger.Logger, err error) {
	metrics.StageFailures.WithLabelValues(string(brick.StageOf(err)), string(brick.CodeOf(err))).Inc()
	log.WithError(err).Error("invocation failed", map[string]interface{}{"stage": string(brick.StageOf(err))})
}

// withCause makes a stage deadline or cancellation visible to errors.Is even when
// the transport did not wrap it.
func withCause(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
		return fmt.Errorf("%w: %v", cerr, err)
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return "failed"
}
