package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for docqa resources.
	uriScheme = "docqa://"

	settingsURI = uriScheme + "settings"
)

// settingsView is the settings resource. Credentials are reduced to whether they are set.
type settingsView struct {
	Embedding struct {
		Provider   string `json:"provider"`
		Model      string `json:"model"`
		BaseURL    string `json:"base_url,omitempty"`
		Dimensions int    `json:"dimensions,omitempty"`
		HasAPIKey  bool   `json:"has_api_key"`
	} `json:"embedding"`
	LLM struct {
		Provider    string  `json:"provider"`
		Model       string  `json:"model"`
		BaseURL     string  `json:"base_url,omitempty"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
		HasAPIKey   bool    `json:"has_api_key"`
	} `json:"llm"`
	VectorStore struct {
		Kind       string `json:"kind"`
		Collection string `json:"collection"`
		Metric     string `json:"metric"`
	} `json:"vector_store"`
	Retrieval struct {
		TopK         int `json:"top_k"`
		ChunkSize    int `json:"chunk_size"`
		ChunkOverlap int `json:"chunk_overlap"`
	} `json:"retrieval"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Settings == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         settingsURI,
		Name:        "settings",
		Description: "Effective docqa configuration (providers, collection, retrieval parameters)",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)
}

// handleSettingsResource returns the effective settings without credentials.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	data, err := json.MarshalIndent(newSettingsView(settings), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling settings: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func newSettingsView(settings *domain.AppSettings) settingsView {
	var v settingsView

	v.Embedding.Provider = settings.Embedding.Provider.String()
	v.Embedding.Model = settings.Embedding.Model
	v.Embedding.BaseURL = settings.Embedding.BaseURL
	v.Embedding.Dimensions = settings.Embedding.Dimensions
	v.Embedding.HasAPIKey = settings.Embedding.APIKey != ""

	v.LLM.Provider = settings.LLM.Provider.String()
	v.LLM.Model = settings.LLM.Model
	v.LLM.BaseURL = settings.LLM.BaseURL
	v.LLM.MaxTokens = settings.LLM.MaxTokens
	v.LLM.Temperature = settings.LLM.Temperature
	v.LLM.HasAPIKey = settings.LLM.APIKey != ""

	v.VectorStore.Kind = settings.VectorStore.Kind.String()
	v.VectorStore.Collection = settings.VectorStore.Collection
	v.VectorStore.Metric = settings.VectorStore.Metric.String()

	v.Retrieval.TopK = settings.Retrieval.TopK
	v.Retrieval.ChunkSize = settings.Retrieval.ChunkSize
	v.Retrieval.ChunkOverlap = settings.Retrieval.ChunkOverlap

	return v
}
