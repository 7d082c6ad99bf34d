package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil query service returns error", func(t *testing.T) {
		ports := &Ports{Ingest: &mockIngestService{}}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingQueryService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Query:  &mockQueryService{},
			Ingest: &mockIngestService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil query service returns error", func(t *testing.T) {
		ports := &Ports{Ingest: &mockIngestService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingQueryService)
	})

	t.Run("nil ingest service returns error", func(t *testing.T) {
		ports := &Ports{Query: &mockQueryService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingIngestService)
	})

	t.Run("settings is optional", func(t *testing.T) {
		ports := &Ports{
			Query:  &mockQueryService{},
			Ingest: &mockIngestService{},
		}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Query:    &mockQueryService{},
			Ingest:   &mockIngestService{},
			Settings: &mockSettingsService{},
		}
		assert.NoError(t, ports.Validate())
	})
}
