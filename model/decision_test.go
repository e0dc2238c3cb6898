package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAgentDecisionAction(t *testing.T) {
	raw := `{"thought": "need the files", "action": {"tool": "list_dir", "input": {"path": "."}}, "is_final": false}`

	d, err := DecodeAgentDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, "need the files", d.Thought)
	require.NotNil(t, d.Action)
	assert.Equal(t, "list_dir", d.Action.Tool)
	assert.Equal(t, ".", d.Action.Input["path"])
	assert.False(t, d.IsFinal)
}

func TestDecodeAgentDecisionFinal(t *testing.T) {
	raw := `{"thought": "done", "is_final": true, "final_answer": "42"}`

	d, err := DecodeAgentDecision(raw)
	require.NoError(t, err)
	assert.True(t, d.IsFinal)
	assert.Equal(t, "42", d.FinalAnswer.String())
}

func TestDecodeAgentDecisionFencedJSON(t *testing.T) {
	raw := "```json\n{\"thought\": \"done\", \"is_final\": true, \"final_answer\": \"ok\"}\n```"

	d, err := DecodeAgentDecision(raw)
	require.NoError(t, err)
	assert.True(t, d.IsFinal)
	assert.Equal(t, "ok", d.FinalAnswer.String())
}

func TestDecodeAgentDecisionEmbeddedJSON(t *testing.T) {
	raw := `Sure, here is my decision: {"thought": "t", "is_final": true, "final_answer": "done"} hope that helps`

	d, err := DecodeAgentDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, "done", d.FinalAnswer.String())
}

func TestDecodeAgentDecisionNonStringFinalAnswer(t *testing.T) {
	raw := `{"thought": "t", "is_final": true, "final_answer": {"count": 3}}`

	d, err := DecodeAgentDecision(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count": 3}`, d.FinalAnswer.String())
}

func TestDecodeAgentDecisionMalformed(t *testing.T) {
	cases := map[string]string{
		"empty output":        "",
		"prose only":          "I think I should list the directory first.",
		"neither action":      `{"thought": "hmm", "is_final": false}`,
		"action without tool": `{"thought": "hmm", "action": {"input": {}}, "is_final": false}`,
		"broken json":         `{"thought": "hmm", "action": {`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeAgentDecision(raw)
			assert.ErrorIs(t, err, ErrMalformedDecision)
		})
	}
}

func TestDecodeRoutingDecision(t *testing.T) {
	d, err := DecodeRoutingDecision(`{"agent": "web_agent", "reasoning": "it is a URL"}`)
	require.NoError(t, err)
	assert.Equal(t, "web_agent", d.Agent)
	assert.Equal(t, "it is a URL", d.Reasoning)
}

func TestDecodeRoutingDecisionMalformed(t *testing.T) {
	_, err := DecodeRoutingDecision(`{"reasoning": "no agent named"}`)
	assert.ErrorIs(t, err, ErrMalformedDecision)

	_, err = DecodeRoutingDecision("definitely the web agent")
	assert.ErrorIs(t, err, ErrMalformedDecision)
}

func TestDecodeSupervisorDecision(t *testing.T) {
	raw := `{"thought": "start", "sub_goals": ["a", "b"], "agent_to_invoke": "file_ops_agent", "agent_task": "list files", "sub_goal_id": "1", "is_final": false}`

	d, err := DecodeSupervisorDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, d.SubGoals)
	assert.Equal(t, "file_ops_agent", d.Agent)
	assert.Equal(t, "list files", d.AgentTask)
	assert.Equal(t, "1", d.SubGoalID)
}

func TestDecodeSupervisorDecisionFinal(t *testing.T) {
	d, err := DecodeSupervisorDecision(`{"thought": "all done", "is_final": true, "final_answer": "summary"}`)
	require.NoError(t, err)
	assert.True(t, d.IsFinal)
	assert.Equal(t, "summary", d.FinalAnswer.String())
}

func TestDecodeSupervisorDecisionMalformed(t *testing.T) {
	// Non-final decisions must name the agent and its task.
	_, err := DecodeSupervisorDecision(`{"thought": "hmm", "is_final": false}`)
	assert.ErrorIs(t, err, ErrMalformedDecision)

	_, err = DecodeSupervisorDecision(`{"thought": "hmm", "agent_to_invoke": "x", "is_final": false}`)
	assert.ErrorIs(t, err, ErrMalformedDecision)
}

func TestMockModelScript(t *testing.T) {
	m := NewMockModel("one", "two")

	out, err := m.Chat(context.Background(), []Message{UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "one", out)

	out, err = m.Chat(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "two", out)

	_, err = m.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoScriptedResponse)
	assert.Equal(t, 3, m.CallCount())
}
