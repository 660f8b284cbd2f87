package models

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed providers.json
var providersFS embed.FS

// Provider ids accepted by the chat proxy.
const (
	ProviderGemini   = "gemini"
	ProviderClaude   = "claude"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderOllama   = "ollama"
	ProviderArk      = "ark"
	ProviderQwen     = "qwen"
	ProviderQianfan  = "qianfan"
)

// ExtraField defines an additional setting a provider needs.
type ExtraField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Placeholder string `json:"placeholder,omitempty"`
}

// ProviderPreset holds the defaults of one model provider.
type ProviderPreset struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	BaseURL      string       `json:"base_url"`
	DefaultModel string       `json:"default_model"`
	MaxTokens    int          `json:"max_tokens,omitempty"`
	Models       []string     `json:"models"`
	ExtraFields  []ExtraField `json:"extra_fields,omitempty"`
}

// HasModel reports whether model is one of the provider's known models, or
// shares the provider's model family prefix.
func (p ProviderPreset) HasModel(model string) bool {
	for _, m := range p.Models {
		if m == model {
			return true
		}
	}
	return p.ID == ProviderClaude && strings.HasPrefix(model, "claude-")
}

type presetsFile struct {
	Providers []ProviderPreset `json:"providers"`
}

var (
	presetsOnce sync.Once
	presets     map[string]ProviderPreset
	presetsErr  error
)

func loadPresets() {
	data, err := providersFS.ReadFile("providers.json")
	if err != nil {
		presetsErr = err
		return
	}
	var f presetsFile
	if err := json.Unmarshal(data, &f); err != nil {
		presetsErr = fmt.Errorf("parse provider presets: %w", err)
		return
	}
	presets = make(map[string]ProviderPreset, len(f.Providers))
	for _, p := range f.Providers {
		presets[p.ID] = p
	}
}

// Preset returns the embedded defaults of a provider.
func Preset(id string) (ProviderPreset, error) {
	presetsOnce.Do(loadPresets)
	if presetsErr != nil {
		return ProviderPreset{}, presetsErr
	}
	p, ok := presets[id]
	if !ok {
		return ProviderPreset{}, fmt.Errorf("unsupported provider %q", id)
	}
	return p, nil
}

// ProviderInfo is the public view of the active provider.
type ProviderInfo struct {
	Provider string   `json:"provider"`
	Name     string   `json:"name"`
	Model    string   `json:"model"`
	Models   []string `json:"models"`
	Circuit  string   `json:"circuit"`
}

// ProviderConfig is the resolved configuration of the active chat model.
type ProviderConfig struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	MaxTokens int
	Extra     map[string]any
}

// Normalize fills empty fields from the provider preset.
func (c *ProviderConfig) Normalize() error {
	p, err := Preset(c.Provider)
	if err != nil {
		return err
	}
	if c.Model == "" {
		c.Model = p.DefaultModel
	}
	if c.BaseURL == "" {
		c.BaseURL = p.BaseURL
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = p.MaxTokens
	}
	if c.Extra == nil {
		c.Extra = map[string]any{}
	}
	return nil
}
