// Package googleai builds Gemini API clients for the embedding and generation
// adapters on top of the Google Generative Language service.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/docqa/internal/adapters/driven/aihttp"
)

// Provider names the backend in errors.
const Provider = "gemini"

// Config holds the connection settings shared by the Gemini adapters.
type Config struct {
	// APIKey is the Google AI Studio key (required).
	APIKey string

	// BaseURL overrides the service endpoint. Empty uses Google's.
	BaseURL string
}

// NewService creates a Generative Language client authenticated with an API key.
func NewService(ctx context.Context, cfg Config) (*generativelanguage.Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", Provider)
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}

	svc, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: create client: %w", Provider, err)
	}
	return svc, nil
}

// ModelPath returns the resource name of a model, adding the models/ prefix
// to bare names such as "gemini-2.0-flash".
func ModelPath(model string) string {
	if strings.HasPrefix(model, "models/") || strings.HasPrefix(model, "tunedModels/") {
		return model
	}
	return "models/" + model
}

// WrapError converts a Google API error into an aihttp.StatusError so every
// provider reports HTTP failures the same way. Other errors gain the provider prefix.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = strings.TrimSpace(gerr.Body)
		}
		return &aihttp.StatusError{Provider: Provider, Code: gerr.Code, Message: msg}
	}
	return fmt.Errorf("%s: %w", Provider, err)
}
