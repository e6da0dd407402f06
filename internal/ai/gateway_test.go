package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls    []string
	generate func(model string) (string, error)
}

func (p *fakeProvider) Name() string {
	return "fake"
}

func (p *fakeProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	p.calls = append(p.calls, model)
	return p.generate(model)
}

func TestGatewayModels_OverrideFirstAndDeduplicated(t *testing.T) {
	g := NewGateway(&fakeProvider{}, "custom-model", 0)
	models := g.Models()
	require.Len(t, models, len(defaultModels)+1)
	require.Equal(t, "custom-model", models[0])

	g = NewGateway(&fakeProvider{}, defaultModels[0], 0)
	require.Equal(t, defaultModels, g.Models())

	g = NewGateway(&fakeProvider{}, "", 0)
	require.Equal(t, defaultModels, g.Models())
}

func TestGatewayGenerate_StopsAtFirstSuccess(t *testing.T) {
	provider := &fakeProvider{
		generate: func(model string) (string, error) {
			if model == defaultModels[2] {
				return "- point one\n- point two", nil
			}
			return "", errors.New("model exploded")
		},
	}
	g := NewGateway(provider, "", 0)
	text, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "- point one\n- point two", text)
	require.Equal(t, defaultModels, provider.calls)
}

func TestGatewayGenerate_SurfacesLastError(t *testing.T) {
	rateErr := &RateLimitError{RetryAfter: "30s", Cause: errors.New("quota exceeded")}
	provider := &fakeProvider{
		generate: func(model string) (string, error) {
			return "", rateErr
		},
	}
	g := NewGateway(provider, "", 0)
	_, err := g.Generate(context.Background(), "prompt")
	require.Error(t, err)
	var got *RateLimitError
	require.True(t, errors.As(err, &got))
	require.Equal(t, "30s", got.RetryAfter)
	require.Len(t, provider.calls, len(defaultModels))
}

func TestGatewayGenerate_MapsAttemptDeadlineToTimeout(t *testing.T) {
	provider := &fakeProvider{
		generate: func(model string) (string, error) {
			return "", context.DeadlineExceeded
		},
	}
	g := NewGateway(provider, "", 0)
	_, err := g.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrTimeout)
}

func TestGatewayGenerate_StopsWhenUnconfigured(t *testing.T) {
	provider := &fakeProvider{
		generate: func(model string) (string, error) {
			return "", ErrUnavailable
		},
	}
	g := NewGateway(provider, "", 0)
	_, err := g.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrUnavailable)
	require.Len(t, provider.calls, 1)
}

func TestGatewayGenerate_RejectsEmptyText(t *testing.T) {
	provider := &fakeProvider{
		generate: func(model string) (string, error) {
			return "   ", nil
		},
	}
	g := NewGateway(provider, "", 0)
	_, err := g.Generate(context.Background(), "prompt")
	require.Error(t, err)
}
