package voice

import (
	_ "embed"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed assistant.yaml
var defaultPresetYAML []byte

type TranscriberConfig struct {
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
	Language string `yaml:"language" json:"language"`
}

type VoiceConfig struct {
	Provider        string  `yaml:"provider" json:"provider"`
	VoiceID         string  `yaml:"voice_id" json:"voiceId"`
	Stability       float64 `yaml:"stability" json:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost" json:"similarityBoost"`
	Speed           float64 `yaml:"speed" json:"speed"`
	Style           float64 `yaml:"style" json:"style"`
	UseSpeakerBoost bool    `yaml:"use_speaker_boost" json:"useSpeakerBoost"`
}

type ModelMessage struct {
	Role    string `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

type ModelConfig struct {
	Provider    string         `yaml:"provider" json:"provider"`
	Model       string         `yaml:"model" json:"model"`
	Temperature float64        `yaml:"temperature" json:"temperature"`
	MaxTokens   int            `yaml:"max_tokens" json:"maxTokens"`
	Messages    []ModelMessage `yaml:"messages" json:"messages"`
}

type AssistantConfig struct {
	Name         string            `yaml:"name" json:"name"`
	FirstMessage string            `yaml:"first_message" json:"firstMessage"`
	Transcriber  TranscriberConfig `yaml:"transcriber" json:"transcriber"`
	Voice        VoiceConfig       `yaml:"voice" json:"voice"`
	Model        ModelConfig       `yaml:"model" json:"model"`
}

func LoadPreset(data []byte) (AssistantConfig, error) {
	var cfg AssistantConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AssistantConfig{}, fmt.Errorf("parse assistant preset: %w", err)
	}
	if cfg.Name == "" {
		return AssistantConfig{}, fmt.Errorf("assistant preset: name is required")
	}
	if len(cfg.Model.Messages) == 0 {
		return AssistantConfig{}, fmt.Errorf("assistant preset: at least one model message is required")
	}
	return cfg, nil
}

func DefaultPreset() (AssistantConfig, error) {
	return LoadPreset(defaultPresetYAML)
}

// ForSession returns a copy of the preset with timing and resume
// instructions appended for this start.
func (c AssistantConfig) ForSession(sc StartContext) AssistantConfig {
	out := c
	out.Model.Messages = append([]ModelMessage(nil), c.Model.Messages...)

	minutes := strconv.FormatFloat(sc.RemainingMinutes, 'f', -1, 64)
	if sc.PriorTranscriptText == "" {
		out.Model.Messages = append(out.Model.Messages, ModelMessage{
			Role:    "system",
			Content: fmt.Sprintf("The interview has %s minutes available. Pace the questions to fit.", minutes),
		})
		return out
	}
	out.FirstMessage = "Welcome back! Let's pick up where we left off."
	out.Model.Messages = append(out.Model.Messages, ModelMessage{
		Role: "system",
		Content: fmt.Sprintf("This interview is being resumed. The conversation so far:\n{{transcript}}\n"+
			"Continue from where it stopped without repeating answered questions. %s minutes remain.", minutes),
	})
	return out
}
