package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/model"
	riguperrors "github.com/rigup-sh/rigup/pkg/errors"
)

func TestRegistry_RegisterAndRetrieve(t *testing.T) {
	Reset()
	p := &testRegistryPlugin{name: "command"}

	require.NoError(t, Register(p))

	fetched, err := Get("command")
	require.NoError(t, err)
	require.Equal(t, p, fetched)
}

func TestRegistry_PreventsDuplicateRegistration(t *testing.T) {
	Reset()

	require.NoError(t, Register(&testRegistryPlugin{name: "command"}))
	err := Register(&testRegistryPlugin{name: "command"})
	require.Error(t, err)
	var pluginErr *riguperrors.PluginError
	require.ErrorAs(t, err, &pluginErr)
}

func TestRegistry_RejectsAnonymousPlugin(t *testing.T) {
	Reset()

	err := Register(&testRegistryPlugin{})
	require.Error(t, err)
	var pluginErr *riguperrors.PluginError
	require.ErrorAs(t, err, &pluginErr)
}

func TestRegistry_ReturnsErrorForUnknownPlugin(t *testing.T) {
	Reset()

	_, err := Get("unknown")
	require.Error(t, err)
	var pluginErr *riguperrors.PluginError
	require.ErrorAs(t, err, &pluginErr)
}

func TestRegistry_ListIsSorted(t *testing.T) {
	Reset()

	require.NoError(t, Register(&testRegistryPlugin{name: "snap"}))
	require.NoError(t, Register(&testRegistryPlugin{name: "apt"}))
	require.NoError(t, Register(&testRegistryPlugin{name: "firewall"}))

	require.Equal(t, []string{"apt", "firewall", "snap"}, List())
}

type testRegistryPlugin struct {
	name string
}

func (p *testRegistryPlugin) Metadata() Metadata {
	return Metadata{Name: p.name, Version: "1.0.0", Description: "test plugin"}
}

func (p *testRegistryPlugin) Schema() any { return nil }

func (p *testRegistryPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.Evaluation, error) {
	return &model.Evaluation{StepID: step.ID, Satisfied: false, Message: "needs apply"}, nil
}

func (p *testRegistryPlugin) Apply(ctx context.Context, evaluation *model.Evaluation, step *config.Step) (*model.StepResult, error) {
	return &model.StepResult{StepID: step.ID, Status: model.StatusSuccess, Changed: true}, nil
}
