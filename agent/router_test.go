package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/actormesh/actor"
	"github.com/hupe1980/actormesh/core"
	"github.com/hupe1980/actormesh/model"
)

func routingDecision(agent string) string {
	return fmt.Sprintf(`{"agent": %q, "reasoning": "best fit"}`, agent)
}

func TestTaskRouterDispatches(t *testing.T) {
	router := actor.NewRouter()

	helperModel := model.NewMockModel(finalDecision("helper did it"))
	helper := startAgent(t, router, helperModel, Config{Name: "helper", Description: "Does helpful things."})

	otherModel := model.NewMockModel(finalDecision("never called"))
	other := startAgent(t, router, otherModel, Config{Name: "other", Description: "Does other things."})

	tr, err := NewTaskRouter(router, model.NewMockModel(routingDecision("helper")))
	require.NoError(t, err)
	tr.AddAgent(helper.Name(), helper.Description())
	tr.AddAgent(other.Name(), other.Description())

	resp, err := tr.Route(context.Background(), core.NewTask("help me"))
	require.NoError(t, err)

	// The chosen agent's response comes back unmodified; the other agent
	// never hears about the task.
	require.True(t, resp.OK())
	assert.Equal(t, "helper", resp.Agent)
	assert.Equal(t, "helper did it", resp.Result)
	assert.Len(t, resp.Steps, 1)
	assert.Zero(t, otherModel.CallCount())
}

func TestTaskRouterUnclassifiable(t *testing.T) {
	router := actor.NewRouter()

	helperModel := model.NewMockModel(finalDecision("never called"))
	helper := startAgent(t, router, helperModel, Config{Name: "helper", Description: "Does helpful things."})

	tr, err := NewTaskRouter(router, model.NewMockModel(routingDecision("nonexistent")))
	require.NoError(t, err)
	tr.AddAgent(helper.Name(), helper.Description())

	_, err = tr.Route(context.Background(), core.NewTask("help me"))
	require.ErrorIs(t, err, ErrUnclassifiable)

	// No fallback dispatch: the registered agent saw nothing.
	assert.Zero(t, helperModel.CallCount())
}

func TestTaskRouterMalformedClassification(t *testing.T) {
	router := actor.NewRouter()
	tr, err := NewTaskRouter(router, model.NewMockModel("not json at all"))
	require.NoError(t, err)
	tr.AddAgent("helper", "Does helpful things.")

	_, err = tr.Route(context.Background(), core.NewTask("help me"))
	assert.ErrorIs(t, err, ErrUnclassifiable)
}

func TestTaskRouterEmptyCatalog(t *testing.T) {
	router := actor.NewRouter()
	tr, err := NewTaskRouter(router, model.NewMockModel())
	require.NoError(t, err)

	_, err = tr.Route(context.Background(), core.NewTask("help me"))
	assert.ErrorIs(t, err, ErrUnclassifiable)
	assert.Zero(t, tr.model.(*model.MockModel).CallCount(), "no model call without a catalog")
}

func TestTaskRouterKnownButNotRunning(t *testing.T) {
	router := actor.NewRouter()
	tr, err := NewTaskRouter(router, model.NewMockModel(routingDecision("helper")))
	require.NoError(t, err)
	tr.AddAgent("helper", "Registered in the catalog but never spawned.")

	_, err = tr.Route(context.Background(), core.NewTask("help me"))
	assert.ErrorIs(t, err, ErrUnclassifiable)
}

func TestTaskRouterServesMailbox(t *testing.T) {
	router := actor.NewRouter()

	helper := startAgent(t, router, model.NewMockModel(finalDecision("done")), Config{Name: "helper"})

	tr, err := NewTaskRouter(router, model.NewMockModel(routingDecision("helper")))
	require.NoError(t, err)
	tr.AddAgent(helper.Name(), helper.Description())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	reply, err := router.Request(context.Background(), "client", tr.Name(), TaskMessage{Task: core.NewTask("help")}, 2*time.Second)
	require.NoError(t, err)

	rm, ok := reply.(ResponseMessage)
	require.True(t, ok)
	assert.Equal(t, "done", rm.Response.Result)
}

func TestTaskRouterServeReportsFailureKind(t *testing.T) {
	router := actor.NewRouter()
	tr, err := NewTaskRouter(router, model.NewMockModel(routingDecision("ghost")))
	require.NoError(t, err)
	tr.AddAgent("other", "Some agent.")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	reply, err := router.Request(context.Background(), "client", tr.Name(), TaskMessage{Task: core.NewTask("help")}, 2*time.Second)
	require.NoError(t, err)

	rm, ok := reply.(ResponseMessage)
	require.True(t, ok)
	require.False(t, rm.Response.OK())
	assert.Equal(t, core.FailureUnclassifiable, rm.Response.Failure.Kind)
}

func TestTaskRouterAgentCatalog(t *testing.T) {
	router := actor.NewRouter()
	tr, err := NewTaskRouter(router, model.NewMockModel())
	require.NoError(t, err)

	tr.AddAgent("b", "second")
	tr.AddAgent("a", "first")
	assert.Equal(t, []string{"a", "b"}, tr.Agents())

	tr.RemoveAgent("a")
	assert.Equal(t, []string{"b"}, tr.Agents())
}
