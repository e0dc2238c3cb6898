package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/actormesh/actor"
	"github.com/hupe1980/actormesh/core"
	"github.com/hupe1980/actormesh/logging"
	"github.com/hupe1980/actormesh/model"
)

// SupervisorName is the default actor name of the supervisor agent.
const SupervisorName = "supervisor"

// DefaultMaxOrchestrationSteps bounds an orchestration when the config does
// not. This budget is independent of any per-agent iteration budget.
const DefaultMaxOrchestrationSteps = 8

// PlanStep records one completed delegation of an orchestration.
type PlanStep struct {
	Agent    string        `json:"agent"`
	Task     string        `json:"task"`
	Response core.Response `json:"response"`
}

// subGoal tracks progress toward one declared sub-goal.
type subGoal struct {
	id          string
	description string
	status      string // pending, completed, failed
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithSupervisorName overrides the supervisor's actor name.
func WithSupervisorName(name string) SupervisorOption {
	return func(s *Supervisor) { s.name = name }
}

// WithSupervisorLogger sets the supervisor's logger.
func WithSupervisorLogger(l logging.Logger) SupervisorOption {
	return func(s *Supervisor) { s.logger = l }
}

// WithMaxOrchestrationSteps bounds the number of delegations per task.
func WithMaxOrchestrationSteps(n int) SupervisorOption {
	return func(s *Supervisor) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

// WithSupervisorTimeout bounds the wait for each delegated agent's response.
func WithSupervisorTimeout(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Supervisor decomposes a task into sub-tasks and delegates them to
// specialized agents one at a time, feeding each response into the next
// decision. It terminates with either a combined final answer, an
// orchestration budget failure, or a stall when a chosen agent is
// unavailable. It deliberately refuses to fabricate partial success.
type Supervisor struct {
	name        string
	maxSteps    int
	timeout     time.Duration
	actorRouter *actor.Router
	mailbox     *actor.Mailbox
	model       model.Model
	logger      logging.Logger

	mu     sync.RWMutex
	agents map[string]string // name -> description
}

// NewSupervisor creates a supervisor agent and registers its mailbox.
func NewSupervisor(router *actor.Router, m model.Model, opts ...SupervisorOption) (*Supervisor, error) {
	s := &Supervisor{
		name:        SupervisorName,
		maxSteps:    DefaultMaxOrchestrationSteps,
		timeout:     DefaultRequestTimeout,
		actorRouter: router,
		model:       m,
		logger:      logging.NoOpLogger{},
		agents:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	mb, err := router.Register(s.name)
	if err != nil {
		return nil, err
	}
	s.mailbox = mb
	return s, nil
}

// Name returns the supervisor's actor name.
func (s *Supervisor) Name() string { return s.name }

// Identity returns the supervisor's actor identity.
func (s *Supervisor) Identity() actor.Identity { return s.mailbox.Owner() }

// AddAgent makes an agent available for delegation.
func (s *Supervisor) AddAgent(name, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[name] = description
}

// Run serves the supervisor's mailbox until ctx ends, then deregisters.
func (s *Supervisor) Run(ctx context.Context) {
	defer s.actorRouter.Deregister(s.mailbox.Owner())
	s.actorRouter.Serve(ctx, s.mailbox, func(ctx context.Context, env actor.Envelope) {
		tm, ok := env.Message.(TaskMessage)
		if !ok {
			s.logger.Warn("unexpected message", "agent", s.name, "kind", env.Message.Kind())
			return
		}
		resp := s.Orchestrate(ctx, tm.Task)
		if !env.Reply(ResponseMessage{Response: resp}) {
			if err := s.actorRouter.Send(ctx, s.name, env.Sender, ResponseMessage{Response: resp}); err != nil {
				s.logger.Warn("response undeliverable", "agent", s.name, "to", env.Sender, "error", err)
			}
		}
	})
}

// Orchestrate runs the delegation loop for one task. Delegated sub-task
// failures are not terminal: they are reported back to the model as facts to
// reason over. An unavailable agent is terminal, because the plan cannot
// make progress without it.
func (s *Supervisor) Orchestrate(ctx context.Context, task core.Task) core.Response {
	start := time.Now()

	s.mu.RLock()
	catalog := make(map[string]string, len(s.agents))
	for name, desc := range s.agents {
		catalog[name] = desc
	}
	s.mu.RUnlock()

	var (
		history []PlanStep
		goals   []subGoal
	)

	finish := func(r core.Response) core.Response {
		r.Agent = s.name
		r.Iterations = len(history)
		r.Duration = time.Since(start)
		return r
	}

	for step := 1; step <= s.maxSteps; step++ {
		raw, err := s.model.Chat(ctx, []model.Message{
			model.SystemMessage(s.orchestrationPrompt(catalog)),
			model.UserMessage(s.statePrompt(task, history, goals)),
		})
		if err != nil {
			return finish(core.NewFailureResponse("", core.FailureModel, err.Error()))
		}

		decision, err := model.DecodeSupervisorDecision(raw)
		if err != nil {
			return finish(core.NewFailureResponse("", core.FailureModel, err.Error()))
		}

		if len(goals) == 0 && len(decision.SubGoals) > 0 {
			for i, g := range decision.SubGoals {
				goals = append(goals, subGoal{id: fmt.Sprintf("%d", i+1), description: g, status: "pending"})
			}
		}

		if decision.IsFinal {
			return finish(core.NewResponse("", decision.FinalAnswer.String()))
		}

		if _, known := catalog[decision.Agent]; !known || !s.actorRouter.Lookup(decision.Agent) {
			return finish(core.NewFailureResponse("", core.FailureOrchestrationStalled,
				fmt.Sprintf("agent %q is not available, plan cannot progress", decision.Agent)))
		}

		subTask := core.Task{
			Description: decision.AgentTask,
			Context:     contextFromHistory(task, history),
		}

		s.logger.Info("delegating sub-task",
			"supervisor", s.name,
			"agent", decision.Agent,
			"step", step,
		)

		reply, err := s.actorRouter.Request(ctx, s.name, decision.Agent, TaskMessage{Task: subTask}, s.timeout)
		if err != nil {
			return finish(core.NewFailureResponse("", core.FailureOrchestrationStalled,
				fmt.Sprintf("agent %q unreachable: %v", decision.Agent, err)))
		}
		rm, ok := reply.(ResponseMessage)
		if !ok {
			return finish(core.NewFailureResponse("", core.FailureOrchestrationStalled,
				fmt.Sprintf("agent %q sent unexpected reply kind %q", decision.Agent, reply.Kind())))
		}

		history = append(history, PlanStep{Agent: decision.Agent, Task: decision.AgentTask, Response: rm.Response})
		s.markGoal(goals, decision.SubGoalID, rm.Response.OK())
	}

	return finish(core.NewFailureResponse("", core.FailureOrchestrationLimit,
		fmt.Sprintf("no completion after %d orchestration steps", s.maxSteps)))
}

func (s *Supervisor) markGoal(goals []subGoal, id string, ok bool) {
	for i := range goals {
		if goals[i].id == id {
			if ok {
				goals[i].status = "completed"
			} else {
				goals[i].status = "failed"
			}
			return
		}
	}
}

func (s *Supervisor) orchestrationPrompt(catalog map[string]string) string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("You supervise a team of agents, breaking a task into sub-tasks and delegating them one at a time.\n\nAgents:\n")
	for _, name := range names {
		sb.WriteString("- ")
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(catalog[name])
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(supervisorFormatPrompt)
	return sb.String()
}

// statePrompt renders the task, declared sub-goals and every completed
// delegation so the model decides the next step from full context.
func (s *Supervisor) statePrompt(task core.Task, history []PlanStep, goals []subGoal) string {
	var sb strings.Builder
	sb.WriteString("Overall task: ")
	sb.WriteString(task.Description)
	sb.WriteString("\n")

	if len(goals) > 0 {
		completed, failed := 0, 0
		sb.WriteString("\nSub-goals:\n")
		for _, g := range goals {
			fmt.Fprintf(&sb, "%s. [%s] %s\n", g.id, g.status, g.description)
			switch g.status {
			case "completed":
				completed++
			case "failed":
				failed++
			}
		}
		fmt.Fprintf(&sb, "Progress: %d/%d completed, %d failed\n", completed, len(goals), failed)
	}

	if len(history) == 0 {
		sb.WriteString("\nNo sub-tasks have been executed yet. Declare your sub-goals and delegate the first one.")
		return sb.String()
	}

	sb.WriteString("\nCompleted sub-tasks:\n")
	for i, step := range history {
		fmt.Fprintf(&sb, "%d. agent=%s task=%q ", i+1, step.Agent, step.Task)
		if step.Response.OK() {
			fmt.Fprintf(&sb, "result=%q\n", step.Response.Result)
		} else {
			fmt.Fprintf(&sb, "FAILED (%s: %s)\n", step.Response.Failure.Kind, step.Response.Failure.Message)
		}
	}
	sb.WriteString("\nDecide the next step.")
	return sb.String()
}

// contextFromHistory threads prior results into a delegated sub-task.
func contextFromHistory(task core.Task, history []PlanStep) map[string]any {
	if len(history) == 0 && len(task.Context) == 0 {
		return nil
	}
	ctx := make(map[string]any, len(task.Context)+1)
	for k, v := range task.Context {
		ctx[k] = v
	}
	if len(history) > 0 {
		results := make([]map[string]any, 0, len(history))
		for _, step := range history {
			entry := map[string]any{"agent": step.Agent, "task": step.Task}
			if step.Response.OK() {
				entry["result"] = step.Response.Result
			} else {
				entry["error"] = step.Response.Failure.Message
			}
			results = append(results, entry)
		}
		ctx["previous_results"] = results
	}
	return ctx
}
