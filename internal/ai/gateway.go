package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Fallback identifiers tried after the configured override, in priority
// order.
var defaultModels = []string{
	"gemini-2.0-flash",
	"gemini-flash-latest",
	"gemini-pro-latest",
}

const defaultAttemptTimeout = 30 * time.Second

// Gateway walks an ordered candidate list until one model produces text.
// Fallback is sequential on purpose: a quota failure on one model must not
// also burn quota on the next unless the first actually failed.
type Gateway struct {
	provider IProvider
	models   []string
	timeout  time.Duration
}

func NewGateway(provider IProvider, modelOverride string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	models := make([]string, 0, len(defaultModels)+1)
	override := strings.TrimSpace(modelOverride)
	if override != "" {
		models = append(models, override)
	}
	for _, model := range defaultModels {
		if model != override {
			models = append(models, model)
		}
	}
	return &Gateway{provider: provider, models: models, timeout: timeout}
}

// Generate returns the first successful candidate's text. When every
// candidate fails, the last observed error wins, so structured rate-limit
// detail from the final attempt survives to the caller.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for i, model := range g.models {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		text, err := g.attempt(ctx, model, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("model attempt failed",
			zap.Int("index", i),
			zap.String("model", model),
			zap.Error(err),
		)
		if errors.Is(err, ErrUnavailable) {
			// No credential; later candidates cannot do better.
			break
		}
	}
	if lastErr == nil {
		return "", ErrUnavailable
	}
	return "", lastErr
}

func (g *Gateway) attempt(ctx context.Context, model, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	text, err := g.provider.Generate(attemptCtx, model, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", ErrTimeout
		}
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", model)
	}
	return text, nil
}

func (g *Gateway) Models() []string {
	return append([]string(nil), g.models...)
}
