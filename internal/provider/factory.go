package provider

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
)

// Build turns the configured provider list into the ordered fallback chain.
// Order in the config is the order the orchestrator tries them.
func Build(cfg common.ProviderConfig, logger *slog.Logger) ([]Provider, error) {
	var out []Provider
	for _, name := range cfg.Providers {
		switch name {
		case "docintel":
			if cfg.DocIntelBaseURL == "" {
				logger.Warn("provider.skipped", "provider", name, "reason", "DOCINTEL_BASE_URL not set")
				continue
			}
			out = append(out, NewDocIntel(DocIntelConfig{
				BaseURL: cfg.DocIntelBaseURL,
				APIKey:  cfg.DocIntelAPIKey,
				Timeout: cfg.HTTPTimeout,
			}, logger))
		case "visionchat":
			if cfg.VisionAPIKey == "" {
				logger.Warn("provider.skipped", "provider", name, "reason", "VISION_API_KEY not set")
				continue
			}
			out = append(out, NewVisionChat(VisionChatConfig{
				BaseURL: cfg.VisionBaseURL,
				APIKey:  cfg.VisionAPIKey,
				Model:   cfg.VisionModel,
				Timeout: cfg.HTTPTimeout,
			}, logger))
		default:
			return nil, fmt.Errorf("%w: unknown provider %q", common.ErrInvalidInput, name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable providers configured", common.ErrInvalidInput)
	}
	return out, nil
}
