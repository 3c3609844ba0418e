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

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

// DocIntelConfig configures the asynchronous document-intelligence provider.
type DocIntelConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DocIntel speaks the submit/poll contract of hosted document-intelligence
// services: POST the document, receive an operation id, poll until a terminal
// state. The orchestrator owns the polling cadence and the absolute timeout.
type DocIntel struct {
	cfg    DocIntelConfig
	client *http.Client
	log    *slog.Logger
}

func NewDocIntel(cfg DocIntelConfig, logger *slog.Logger) *DocIntel {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "prebuilt-invoice"
	}
	return &DocIntel{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger,
	}
}

func (d *DocIntel) Name() string { return "docintel" }

type docIntelSubmitResponse struct {
	OperationID string `json:"operation_id"`
	TaskID      string `json:"task_id"` // some deployments use this name
}

func (d *DocIntel) Submit(ctx context.Context, doc entity.Document) (Submission, error) {
	body := map[string]any{
		"model":      d.cfg.Model,
		"media_type": doc.MediaType,
		"document":   base64.StdEncoding.EncodeToString(doc.Bytes),
	}

	endpoint := strings.TrimRight(d.cfg.BaseURL, "/") + "/invoices:analyze"
	raw, err := SendJSON(ctx, d.client, endpoint, body, d.headers(), d.log)
	if err != nil {
		return Submission{}, err
	}

	var sr docIntelSubmitResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return Submission{}, fmt.Errorf("%w: decode submit response: %v", common.ErrMalformedResponse, err)
	}
	handle := sr.OperationID
	if handle == "" {
		handle = sr.TaskID
	}
	if handle == "" {
		return Submission{}, fmt.Errorf("%w: submit response carries no operation id", common.ErrMalformedResponse)
	}

	d.log.Info("docintel.submitted", "doc_id", doc.ID, "operation", handle)
	return Submission{Handle: handle}, nil
}

type docIntelStatusResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

func (d *DocIntel) Poll(ctx context.Context, handle string) (PollResult, error) {
	endpoint := strings.TrimRight(d.cfg.BaseURL, "/") + "/operations/" + handle
	raw, err := GetJSON(ctx, d.client, endpoint, d.headers(), d.log)
	if err != nil {
		return PollResult{}, err
	}

	var sr docIntelStatusResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return PollResult{}, fmt.Errorf("%w: decode status response: %v", common.ErrMalformedResponse, err)
	}

	switch strings.ToLower(sr.Status) {
	case "pending", "running", "notstarted", "converting":
		return PollResult{Status: constants.AnalysisPending}, nil
	case "succeeded", "done", "completed":
		if len(sr.Result) == 0 {
			return PollResult{}, fmt.Errorf("%w: succeeded without a result payload", common.ErrMalformedResponse)
		}
		inv, err := DecodeRawInvoice(sr.Result)
		if err != nil {
			return PollResult{}, err
		}
		return PollResult{Status: constants.AnalysisSucceeded, Invoice: inv}, nil
	case "failed", "error":
		return PollResult{Status: constants.AnalysisFailed, Message: sr.Error}, nil
	default:
		return PollResult{}, fmt.Errorf("%w: unknown operation status %q", common.ErrMalformedResponse, sr.Status)
	}
}

func (d *DocIntel) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + d.cfg.APIKey}
}
