package campaign

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/settings"
	"github.com/sells-group/prospect-cli/pkg/ollama"
	"github.com/sells-group/prospect-cli/pkg/sdwebui"
)

// ProbeTimeout bounds each collaborator availability check.
const ProbeTimeout = 5 * time.Second

// ProbeReport is the availability of the generation collaborators.
type ProbeReport struct {
	TextURL    string   `json:"text_url"`
	TextOK     bool     `json:"text_ok"`
	Models     []string `json:"models"`
	TextError  string   `json:"text_error,omitempty"`
	ImageURL   string   `json:"image_url"`
	ImageOK    bool     `json:"image_ok"`
	ImageError string   `json:"image_error,omitempty"`
}

// ProbeText lists the models installed on the configured text server.
func ProbeText(ctx context.Context, cur settings.Settings) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	models, err := ollama.NewClient(ollama.WithBaseURL(cur.OllamaURL)).ListModels(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return names, nil
}

// ProbeImage checks that the configured image server answers.
func ProbeImage(ctx context.Context, cur settings.Settings) error {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	return sdwebui.NewClient(sdwebui.WithBaseURL(cur.StableDiffusionURL)).Ping(ctx)
}

// Probe checks both collaborators concurrently. Failures are reported in the
// result rather than returned.
func Probe(ctx context.Context, cur settings.Settings) ProbeReport {
	report := ProbeReport{TextURL: cur.OllamaURL, ImageURL: cur.StableDiffusionURL, Models: []string{}}

	var g errgroup.Group
	g.Go(func() error {
		models, err := ProbeText(ctx, cur)
		if err != nil {
			report.TextError = err.Error()
			return nil
		}
		report.TextOK = true
		report.Models = models
		return nil
	})
	g.Go(func() error {
		if err := ProbeImage(ctx, cur); err != nil {
			report.ImageError = err.Error()
			return nil
		}
		report.ImageOK = true
		return nil
	})
	_ = g.Wait()
	return report
}
