// Package settings manages user-editable runtime settings stored as JSON
// values in the settings table and overlaid on configured defaults.
package settings

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
)

// Settings are the values a user may change between campaigns. JSON names
// double as storage keys.
type Settings struct {
	OllamaURL          string `json:"ollamaUrl" yaml:"ollamaUrl" validate:"omitempty,url"`
	OllamaModel        string `json:"ollamaModel" yaml:"ollamaModel"`
	StableDiffusionURL string `json:"stableDiffusionUrl" yaml:"stableDiffusionUrl" validate:"omitempty,url"`

	EmailProvider string `json:"emailProvider" yaml:"emailProvider" validate:"omitempty,oneof=gmail outlook yahoo custom"`
	SMTPHost      string `json:"smtpHost" yaml:"smtpHost"`
	SMTPPort      int    `json:"smtpPort" yaml:"smtpPort" validate:"min=1,max=65535"`
	SMTPSecure    bool   `json:"smtpSecure" yaml:"smtpSecure"`
	EmailUser     string `json:"emailUser" yaml:"emailUser" validate:"omitempty,email"`
	EmailPassword string `json:"emailPassword" yaml:"emailPassword,omitempty"`
	SenderName    string `json:"senderName" yaml:"senderName"`

	MaxLeadsPerSearch    int `json:"maxLeadsPerSearch" yaml:"maxLeadsPerSearch" validate:"min=1"`
	DelayBetweenRequests int `json:"delayBetweenRequests" yaml:"delayBetweenRequests" validate:"min=1000"`

	MockupsDirectory string `json:"mockupsDirectory" yaml:"mockupsDirectory"`
}

// Defaults derives the default settings from application config.
func Defaults(cfg *config.Config) Settings {
	return Settings{
		OllamaURL:            cfg.Ollama.URL,
		OllamaModel:          cfg.Ollama.Model,
		StableDiffusionURL:   cfg.StableDiffusion.URL,
		EmailProvider:        "gmail",
		SMTPPort:             587,
		MaxLeadsPerSearch:    20,
		DelayBetweenRequests: 2000,
		MockupsDirectory:     cfg.Pipeline.MockupsDir,
	}
}

// Validate checks field formats and ranges.
func (s Settings) Validate() error {
	return model.ValidateStruct(s)
}

// Store is the persistence the Manager needs.
type Store interface {
	ListSettings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSettings(ctx context.Context) error
}

// Manager reads and writes settings.
type Manager struct {
	store    Store
	defaults Settings
}

// NewManager creates a Manager.
func NewManager(st Store, defaults Settings) *Manager {
	return &Manager{store: st, defaults: defaults}
}

// Defaults returns the settings used when nothing is stored.
func (m *Manager) Defaults() Settings { return m.defaults }

// Get returns the defaults overlaid with every stored value. Unknown keys are
// ignored; a stored value that no longer decodes is logged and skipped.
func (m *Manager) Get(ctx context.Context) (Settings, error) {
	stored, err := m.store.ListSettings(ctx)
	if err != nil {
		return Settings{}, err
	}

	fields, err := toFields(m.defaults)
	if err != nil {
		return Settings{}, err
	}

	out := m.defaults
	for key, raw := range stored {
		if _, known := fields[key]; !known {
			continue
		}
		if err := overlay(&out, key, raw); err != nil {
			zap.L().Warn("settings: ignoring undecodable value", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}

// Save validates s and persists every known key.
func (m *Manager) Save(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	fields, err := toFields(s)
	if err != nil {
		return err
	}
	for key, raw := range fields {
		if err := m.store.SetSetting(ctx, key, string(raw)); err != nil {
			return err
		}
	}
	if s.MockupsDirectory != "" {
		if err := os.MkdirAll(s.MockupsDirectory, 0o755); err != nil {
			return eris.Wrap(err, "settings: create mockups directory")
		}
	}
	return nil
}

// Reset removes every stored value so the defaults apply again.
func (m *Manager) Reset(ctx context.Context) error {
	return m.store.DeleteSettings(ctx)
}

// Export writes the current settings as YAML with the email password removed.
func (m *Manager) Export(ctx context.Context, w io.Writer) error {
	s, err := m.Get(ctx)
	if err != nil {
		return err
	}
	s.EmailPassword = ""

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return eris.Wrap(err, "settings: encode yaml")
	}
	return eris.Wrap(enc.Close(), "settings: flush yaml")
}

// Import reads YAML settings, applies them over the current values, then
// validates and saves the result. Keys absent from the document keep their
// current value.
func (m *Manager) Import(ctx context.Context, r io.Reader) (Settings, error) {
	s, err := m.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	password := s.EmailPassword
	if err := yaml.NewDecoder(r).Decode(&s); err != nil && !eris.Is(err, io.EOF) {
		return Settings{}, &model.ValidationError{Message: "malformed settings document: " + err.Error()}
	}
	keepPassword(&s, password)
	if err := m.Save(ctx, s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Update applies a partial JSON document over the current settings and saves
// the result. An empty emailPassword keeps the stored one, since reads never
// return it; Reset clears it.
func (m *Manager) Update(ctx context.Context, patch []byte) (Settings, error) {
	s, err := m.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	password := s.EmailPassword
	if err := json.Unmarshal(patch, &s); err != nil {
		return Settings{}, &model.ValidationError{Message: "malformed settings document: " + err.Error()}
	}
	keepPassword(&s, password)
	if err := m.Save(ctx, s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func keepPassword(s *Settings, stored string) {
	if s.EmailPassword == "" {
		s.EmailPassword = stored
	}
}

func toFields(s Settings) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "settings: encode")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, eris.Wrap(err, "settings: split fields")
	}
	return fields, nil
}

// overlay decodes one stored value onto s. Values written by hand without JSON
// quoting are retried as plain strings.
func overlay(s *Settings, key, raw string) error {
	doc := map[string]json.RawMessage{key: json.RawMessage(raw)}
	if !json.Valid([]byte(raw)) {
		quoted, _ := json.Marshal(raw)
		doc[key] = quoted
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, s)
}
