package describer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/genai"

	"katari/internal/interfaces"
	"katari/internal/model"
)

// ErrGenerationFailed marks description generation errors after retries are
// exhausted.
var ErrGenerationFailed = errors.New("description generation failed")

// Config holds the Vertex AI settings for the Gemini describer.
type Config struct {
	Project  string
	Location string
	Model    string
	// Temperature is passed through when nonzero; zero keeps the model
	// default, matching how reports were described before this knob
	// existed.
	Temperature float32
}

const defaultModel = "gemini-2.5-flash"

// Gemini generates report descriptions through the Vertex AI backend.
// Credentials come from the environment (GOOGLE_APPLICATION_CREDENTIALS or
// ambient application default credentials).
type Gemini struct {
	client      *genai.Client
	modelName   string
	temperature float32
	logger      interfaces.Logger

	// backoffFactory is swapped in tests to avoid real waits.
	backoffFactory func() backoff.BackOff
}

// NewGemini dials the Vertex AI backend for the configured project and
// location.
func NewGemini(ctx context.Context, cfg Config, logger interfaces.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend:  genai.BackendVertexAI,
		Project:  cfg.Project,
		Location: cfg.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vertex ai client: %w", err)
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}
	return &Gemini{
		client:      client,
		modelName:   modelName,
		temperature: cfg.Temperature,
		logger:      logger.With(interfaces.Field{Key: "component", Value: "describer"}),
		backoffFactory: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			b.MaxInterval = 30 * time.Second
			return b
		},
	}, nil
}

// Describe sends the prompt plus one screenshot per captured page and returns
// the generated description. Transient API errors are retried with
// exponential backoff; anything else fails immediately.
func (g *Gemini) Describe(ctx context.Context, req *model.DescribeRequest) (string, error) {
	if len(req.Pages) == 0 {
		return "", fmt.Errorf("%w: no captured pages for %q", ErrGenerationFailed, req.ReportName)
	}

	parts := []*genai.Part{genai.NewPartFromText(BuildPrompt(req))}
	for _, page := range req.Pages {
		if len(page.Screenshot) == 0 {
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(page.Screenshot, "image/png"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var genCfg *genai.GenerateContentConfig
	if g.temperature != 0 {
		genCfg = &genai.GenerateContentConfig{Temperature: genai.Ptr(g.temperature)}
	}

	var description string
	operation := func() error {
		start := time.Now()
		resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, genCfg)
		if err != nil {
			return classifyAPIError(err)
		}
		if len(resp.Candidates) == 0 {
			return backoff.Permanent(errors.New("model returned no candidates"))
		}
		text := resp.Text()
		if strings.TrimSpace(text) == "" {
			reason := resp.Candidates[0].FinishReason
			if reason == genai.FinishReasonSafety || reason == genai.FinishReasonBlocklist {
				return backoff.Permanent(fmt.Errorf("model blocked the request (reason %s)", reason))
			}
			return fmt.Errorf("model returned empty text (reason %s)", reason)
		}
		g.logger.Debug("description generated",
			interfaces.Field{Key: "report", Value: req.ReportName},
			interfaces.Field{Key: "pages", Value: len(req.Pages)},
			interfaces.Field{Key: "duration", Value: time.Since(start).String()},
		)
		description = text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(g.backoffFactory(), ctx)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return description, nil
}

// classifyAPIError keeps rate limits and server hiccups retryable and makes
// everything else permanent.
func classifyAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
			return err
		}
		return backoff.Permanent(err)
	}
	// Network-level failures carry no status code and are worth retrying.
	return err
}
