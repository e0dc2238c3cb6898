package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/actormesh/actor"
	"github.com/hupe1980/actormesh/core"
	"github.com/hupe1980/actormesh/model"
)

func delegation(agent, task, goalID string, subGoals ...string) string {
	goals := ""
	for i, g := range subGoals {
		if i > 0 {
			goals += ", "
		}
		goals += fmt.Sprintf("%q", g)
	}
	return fmt.Sprintf(`{"thought": "next", "sub_goals": [%s], "agent_to_invoke": %q, "agent_task": %q, "sub_goal_id": %q, "is_final": false}`,
		goals, agent, task, goalID)
}

func supervisorFinal(answer string) string {
	return fmt.Sprintf(`{"thought": "complete", "is_final": true, "final_answer": %q}`, answer)
}

func TestSupervisorOrchestratesToCompletion(t *testing.T) {
	router := actor.NewRouter()

	workerModel := model.NewMockModel(
		finalDecision("step one done"),
		finalDecision("step two done"),
	)
	worker := startAgent(t, router, workerModel, Config{Name: "worker", Description: "Does the work."})

	supModel := model.NewMockModel(
		delegation("worker", "do part one", "1", "part one", "part two"),
		delegation("worker", "do part two", "2"),
		supervisorFinal("both parts finished"),
	)
	sup, err := NewSupervisor(router, supModel)
	require.NoError(t, err)
	sup.AddAgent(worker.Name(), worker.Description())

	resp := sup.Orchestrate(context.Background(), core.NewTask("do both parts"))
	require.True(t, resp.OK())
	assert.Equal(t, "both parts finished", resp.Result)
	assert.Equal(t, SupervisorName, resp.Agent)
	assert.Equal(t, 2, resp.Iterations)

	// Second delegation carries the first result as context.
	secondTask := workerModel.Call(1)[1].Content
	assert.Contains(t, secondTask, "previous_results")
	assert.Contains(t, secondTask, "step one done")
}

func TestSupervisorStallsOnUnavailableAgent(t *testing.T) {
	router := actor.NewRouter()

	supModel := model.NewMockModel(delegation("ghost", "haunt", "1", "haunting"))
	sup, err := NewSupervisor(router, supModel)
	require.NoError(t, err)
	sup.AddAgent("ghost", "Catalogued but never spawned.")

	resp := sup.Orchestrate(context.Background(), core.NewTask("impossible plan"))
	require.False(t, resp.OK())
	assert.Equal(t, core.FailureOrchestrationStalled, resp.Failure.Kind)
	assert.Contains(t, resp.Failure.Message, "ghost")
}

func TestSupervisorOrchestrationLimit(t *testing.T) {
	router := actor.NewRouter()

	workerModel := model.NewMockModel(
		finalDecision("ok"), finalDecision("ok"), finalDecision("ok"),
	)
	worker := startAgent(t, router, workerModel, Config{Name: "worker"})

	supModel := model.NewMockModel(
		delegation("worker", "again", "1", "the goal"),
		delegation("worker", "again", "1"),
		delegation("worker", "again", "1"),
	)
	sup, err := NewSupervisor(router, supModel, WithMaxOrchestrationSteps(2))
	require.NoError(t, err)
	sup.AddAgent(worker.Name(), worker.Description())

	resp := sup.Orchestrate(context.Background(), core.NewTask("never converges"))
	require.False(t, resp.OK())
	assert.Equal(t, core.FailureOrchestrationLimit, resp.Failure.Kind)
	assert.Equal(t, 2, resp.Iterations)
}

func TestSupervisorFeedsFailureBackAsFact(t *testing.T) {
	router := actor.NewRouter()

	workerModel := model.NewMockModel()
	workerModel.FailWith(errors.New("provider down"))
	worker := startAgent(t, router, workerModel, Config{Name: "worker", Description: "Unreliable today."})

	supModel := model.NewMockModel(
		delegation("worker", "try it", "1", "the goal"),
		supervisorFinal("could not complete the goal, the worker failed"),
	)
	sup, err := NewSupervisor(router, supModel)
	require.NoError(t, err)
	sup.AddAgent(worker.Name(), worker.Description())

	resp := sup.Orchestrate(context.Background(), core.NewTask("fragile plan"))

	// The delegated failure is reported to the model, which still reaches a
	// deliberate final answer. It never terminates the orchestration by itself.
	require.True(t, resp.OK())
	state := supModel.Call(1)[1].Content
	assert.Contains(t, state, "FAILED")
	assert.Contains(t, state, "1 failed")
}

func TestSupervisorModelFailure(t *testing.T) {
	router := actor.NewRouter()

	supModel := model.NewMockModel()
	supModel.FailWith(errors.New("provider down"))
	sup, err := NewSupervisor(router, supModel)
	require.NoError(t, err)

	resp := sup.Orchestrate(context.Background(), core.NewTask("anything"))
	require.False(t, resp.OK())
	assert.Equal(t, core.FailureModel, resp.Failure.Kind)
}

func TestSupervisorMalformedDelegation(t *testing.T) {
	router := actor.NewRouter()

	// Non-final but naming no agent.
	sup, err := NewSupervisor(router, model.NewMockModel(`{"thought": "hmm", "is_final": false}`))
	require.NoError(t, err)

	resp := sup.Orchestrate(context.Background(), core.NewTask("anything"))
	require.False(t, resp.OK())
	assert.Equal(t, core.FailureModel, resp.Failure.Kind)
}
