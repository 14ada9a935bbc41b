package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/core/errors"
	"github.com/taskdeck/core/pkg/models"
)

type stubAdapter struct {
	name string
}

func (s stubAdapter) Name() string { return s.name }

func (s stubAdapter) FetchProjects(ctx context.Context) ([]models.Project, error) {
	return nil, nil
}

func (s stubAdapter) CollectDiagnostics(ctx context.Context) (models.Diagnostics, error) {
	return models.Diagnostics{Provider: s.name}, nil
}

func (s stubAdapter) RepairMetadata(ctx context.Context, dryRun bool) (models.RepairReport, error) {
	return models.RepairReport{Provider: s.name}, nil
}

func (s stubAdapter) WatchChanges(callback func()) (Unsubscribe, error) {
	return func() {}, nil
}

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubAdapter{name: "claude"}))
	require.NoError(t, r.Register(stubAdapter{name: "codex"}))

	assert.Equal(t, []string{"claude", "codex"}, r.Names())
	assert.Equal(t, 2, r.Len())

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "claude", all[0].Name())
	assert.Equal(t, "codex", all[1].Name())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubAdapter{name: "claude"}))

	err := r.Register(stubAdapter{name: "claude"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestRegistryRejectsUnnamedAdapter(t *testing.T) {
	r := NewRegistry()
	err := r.Register(stubAdapter{})
	require.Error(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryGetUnknownProvider(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubAdapter{name: "claude"}))

	_, err := r.Get("gemini")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeProviderUnknown))

	adapter, err := r.Get("claude")
	require.NoError(t, err)
	assert.Equal(t, "claude", adapter.Name())
}
