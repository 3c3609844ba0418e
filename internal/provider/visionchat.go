package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

// VisionChatConfig configures the chat-completions vision provider.
type VisionChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// VisionChat extracts invoice fields through an OpenAI-style chat/completions
// endpoint with the document attached as an image data URL. It is the
// degenerate synchronous provider: Submit returns the finished result and
// Poll is never needed.
type VisionChat struct {
	cfg    VisionChatConfig
	client *http.Client
	log    *slog.Logger
}

func NewVisionChat(cfg VisionChatConfig, logger *slog.Logger) *VisionChat {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &VisionChat{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger,
	}
}

func (v *VisionChat) Name() string { return "visionchat" }

func (v *VisionChat) Submit(ctx context.Context, doc entity.Document) (Submission, error) {
	rid := uuid.New().String()
	start := time.Now()

	v.log.Info("visionchat.extract.start",
		"req_id", rid,
		"model", v.cfg.Model,
		"doc_id", doc.ID,
		"media_type", doc.MediaType,
		"bytes", doc.Size(),
	)

	schema := BuildInvoiceJSONSchema()
	body := map[string]any{
		"model":           v.cfg.Model,
		"temperature":     v.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt + "\n\nJSON Schema:\n" + mustJSON(schema)},
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": "Extract the invoice fields from this document. Return ONLY JSON matching the schema."},
				{"type": "image_url", "image_url": map[string]any{"url": dataURL(doc)}},
			}},
		},
	}

	endpoint := strings.TrimRight(v.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + v.cfg.APIKey}
	raw, err := SendJSON(ctx, v.client, endpoint, body, headers, v.log)
	if err != nil {
		v.log.Error("visionchat.extract.http_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Submission{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return Submission{}, fmt.Errorf("%w: decode completion: %v", common.ErrMalformedResponse, err)
	}
	if len(cc.Choices) == 0 {
		return Submission{}, fmt.Errorf("%w: no choices in completion", common.ErrMalformedResponse)
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	// Validate strictly first; fall back to a lenient sanitize pass.
	if err := ValidateJSONAgainstSchema(schema, content); err != nil {
		cleaned, droppedKeys, sErr := SanitizeInvoiceJSON(content, v.log)
		if sErr != nil {
			return Submission{}, fmt.Errorf("%w: sanitize: %v", common.ErrMalformedResponse, sErr)
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			v.log.Error("visionchat.extract.schema_validation_failed", "req_id", rid, "error", vErr)
			return Submission{}, fmt.Errorf("%w: schema validation: %v", common.ErrMalformedResponse, vErr)
		}
		v.log.Warn("visionchat.extract.lenient_sanitize_applied", "req_id", rid, "dropped", droppedKeys)
		content = cleaned
	}

	inv, err := DecodeRawInvoice(content)
	if err != nil {
		return Submission{}, err
	}

	v.log.Info("visionchat.extract.ok",
		"req_id", rid,
		"lines", len(inv.Lines),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Submission{Invoice: inv}, nil
}

// Poll is unreachable for a synchronous provider.
func (v *VisionChat) Poll(ctx context.Context, handle string) (PollResult, error) {
	return PollResult{}, fmt.Errorf("%w: visionchat has no poll operation", common.ErrMalformedResponse)
}

const systemPrompt = "You are an invoice data extraction engine. " +
	"You receive a photographed or scanned supplier invoice and return its header fields " +
	"and every line item. Keep numbers exactly as printed (including European formats like 1 234,56). " +
	"Use empty strings for fields you cannot read. Never invent line items."

func dataURL(doc entity.Document) string {
	mt := doc.MediaType
	if mt == "" {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(doc.Bytes)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
