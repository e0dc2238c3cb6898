// Package core defines the shared data model exchanged between agents, the
// message router and the orchestration layers: tasks flowing in, the step
// trace a reasoning loop produces, and the response flowing back out.
package core

import "time"

// Task describes a unit of work handed to an agent. Tasks are immutable once
// created and are passed by value through mailboxes; agents never mutate the
// task they receive.
type Task struct {
	// Description is the natural language statement of what to accomplish.
	Description string `json:"description"`

	// MaxIterations bounds the reasoning loop for this task. Zero means
	// "use the agent's configured default".
	MaxIterations int `json:"max_iterations,omitempty"`

	// Context carries structured data threaded from earlier pipeline stages,
	// e.g. the output of a previous agent in an orchestration.
	Context map[string]any `json:"context,omitempty"`
}

// NewTask creates a task with the given description and no context.
func NewTask(description string) Task {
	return Task{Description: description}
}

// WithContext returns a copy of the task carrying the given context data.
func (t Task) WithContext(ctx map[string]any) Task {
	t.Context = ctx
	return t
}

// Action is a tool invocation decided by the reasoning loop.
type Action struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// Step records one Thinking/Acting/Observing cycle of a reasoning loop.
// The step history is append-only and owned by the loop that produced it;
// responses carry a snapshot.
type Step struct {
	// Iteration is the 1-based cycle number this step belongs to.
	Iteration int `json:"iteration"`

	// Thought is the model's reasoning for this cycle.
	Thought string `json:"thought,omitempty"`

	// Action is the tool invocation chosen, nil when the cycle produced a
	// final answer instead.
	Action *Action `json:"action,omitempty"`

	// Observation is the tool output (or failure description) fed back into
	// the next cycle.
	Observation string `json:"observation,omitempty"`

	// Final marks the step that terminated the loop with an answer.
	Final bool `json:"final,omitempty"`
}

// FailureKind categorizes why a task could not be completed. The kinds are
// deliberately coarse: callers branch on the category, not the message.
type FailureKind string

const (
	// FailureModel indicates the language model call failed or returned
	// output that could not be decoded into a decision.
	FailureModel FailureKind = "model"

	// FailureIterationLimit indicates the reasoning loop exhausted its
	// iteration budget without producing a final answer.
	FailureIterationLimit FailureKind = "iteration_limit_exceeded"

	// FailureUnclassifiable indicates the router could not map a task to any
	// registered agent.
	FailureUnclassifiable FailureKind = "unclassifiable"

	// FailureOrchestrationLimit indicates the supervisor exhausted its step
	// budget before declaring the overall task complete.
	FailureOrchestrationLimit FailureKind = "orchestration_limit_exceeded"

	// FailureOrchestrationStalled indicates the supervisor selected an agent
	// that is not available, leaving the plan unable to progress.
	FailureOrchestrationStalled FailureKind = "orchestration_stalled"

	// FailureRouting indicates a message could not be delivered or the
	// recipient never replied within the deadline.
	FailureRouting FailureKind = "routing"
)

// Failure describes why a response carries no result.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Error implements the error interface so failures can flow through error
// returning call sites unchanged.
func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// Response is the terminal outcome of a task. A response is created exactly
// once, when the processing of the task terminates, and is never updated.
type Response struct {
	// Agent is the name of the agent that produced this response.
	Agent string `json:"agent"`

	// Result holds the final answer when the task succeeded.
	Result string `json:"result,omitempty"`

	// Failure is non-nil when the task did not complete; Result is then empty.
	Failure *Failure `json:"failure,omitempty"`

	// Iterations is the number of reasoning cycles consumed.
	Iterations int `json:"iterations"`

	// Steps is the snapshot of the loop's step trace.
	Steps []Step `json:"steps,omitempty"`

	// Duration is the wall clock time from task receipt to termination.
	Duration time.Duration `json:"duration"`
}

// OK reports whether the task completed successfully.
func (r Response) OK() bool { return r.Failure == nil }

// NewResponse creates a successful response.
func NewResponse(agent, result string) Response {
	return Response{Agent: agent, Result: result}
}

// NewFailureResponse creates a failed response with the given kind and message.
func NewFailureResponse(agent string, kind FailureKind, message string) Response {
	return Response{Agent: agent, Failure: &Failure{Kind: kind, Message: message}}
}
