package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/actormesh/internal/util"
)

// ErrMalformedDecision is returned when model output cannot be decoded into
// the expected decision shape. Callers treat it as a model failure; there is
// no silent fallback to a default decision.
var ErrMalformedDecision = errors.New("malformed model decision")

// FlexString decodes a JSON value that should be a string but may arrive as
// any JSON type. Non-string values are kept as their compact JSON encoding.
// Models occasionally emit objects or arrays where a string was asked for.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(strings.TrimSpace(string(data)))
	return nil
}

// String returns the decoded value.
func (f FlexString) String() string { return string(f) }

// AgentAction is a tool invocation requested by the reasoning loop.
type AgentAction struct {
	Tool  string         `json:"tool"`
	Input map[string]any `json:"input"`
}

// AgentDecision is one reasoning cycle's outcome: either an action to take
// or a final answer, never both and never neither.
type AgentDecision struct {
	Thought     string       `json:"thought"`
	Action      *AgentAction `json:"action,omitempty"`
	IsFinal     bool         `json:"is_final"`
	FinalAnswer FlexString   `json:"final_answer,omitempty"`
}

// RoutingDecision names the agent a task should be dispatched to.
type RoutingDecision struct {
	Agent     string `json:"agent"`
	Reasoning string `json:"reasoning"`
}

// SupervisorDecision is one orchestration cycle's outcome: the next sub-task
// to delegate, or completion of the overall goal.
type SupervisorDecision struct {
	Thought     string     `json:"thought"`
	SubGoals    []string   `json:"sub_goals,omitempty"`
	Agent       string     `json:"agent_to_invoke,omitempty"`
	AgentTask   string     `json:"agent_task,omitempty"`
	SubGoalID   string     `json:"sub_goal_id,omitempty"`
	IsFinal     bool       `json:"is_final"`
	FinalAnswer FlexString `json:"final_answer,omitempty"`
}

// DecodeAgentDecision parses raw model output into an AgentDecision.
// The output may wrap its JSON in prose or a markdown fence. A decision with
// neither an action nor a final answer is malformed.
func DecodeAgentDecision(raw string) (AgentDecision, error) {
	var d AgentDecision
	if err := decodeJSON(raw, &d); err != nil {
		return AgentDecision{}, err
	}
	if d.Action == nil && !d.IsFinal {
		return AgentDecision{}, fmt.Errorf("%w: neither action nor final answer", ErrMalformedDecision)
	}
	if d.Action != nil && d.Action.Tool == "" {
		return AgentDecision{}, fmt.Errorf("%w: action missing tool name", ErrMalformedDecision)
	}
	return d, nil
}

// DecodeRoutingDecision parses raw model output into a RoutingDecision.
// An empty agent name is malformed.
func DecodeRoutingDecision(raw string) (RoutingDecision, error) {
	var d RoutingDecision
	if err := decodeJSON(raw, &d); err != nil {
		return RoutingDecision{}, err
	}
	if d.Agent == "" {
		return RoutingDecision{}, fmt.Errorf("%w: missing agent name", ErrMalformedDecision)
	}
	return d, nil
}

// DecodeSupervisorDecision parses raw model output into a SupervisorDecision.
// A non-final decision must name the agent to invoke and its task.
func DecodeSupervisorDecision(raw string) (SupervisorDecision, error) {
	var d SupervisorDecision
	if err := decodeJSON(raw, &d); err != nil {
		return SupervisorDecision{}, err
	}
	if !d.IsFinal && (d.Agent == "" || d.AgentTask == "") {
		return SupervisorDecision{}, fmt.Errorf("%w: non-final decision missing agent or task", ErrMalformedDecision)
	}
	return d, nil
}

// decodeJSON tries the raw text directly, then the fence-stripped form, then
// the first balanced JSON object embedded in the text.
func decodeJSON(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("%w: empty output", ErrMalformedDecision)
	}

	candidates := []string{trimmed}
	if stripped := util.StripCodeFence(trimmed); stripped != trimmed {
		candidates = append(candidates, stripped)
	}
	if obj := util.ExtractJSONObject(trimmed); obj != "" && obj != trimmed {
		candidates = append(candidates, obj)
	}

	var lastErr error
	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c), v); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("%w: %v", ErrMalformedDecision, lastErr)
}
