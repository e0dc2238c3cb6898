// Package agent implements the reasoning agents of the runtime: specialized
// agents running a bounded think/act/observe loop, a router that dispatches
// tasks by classification, and a supervisor that decomposes tasks across
// agents. Agents are actors: each owns a mailbox and processes tasks
// serially from its own serving goroutine.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/actormesh/actor"
	"github.com/hupe1980/actormesh/core"
	"github.com/hupe1980/actormesh/logging"
	"github.com/hupe1980/actormesh/model"
	"github.com/hupe1980/actormesh/tool"
)

// DefaultMaxIterations bounds the reasoning loop when neither the task nor
// the config sets a budget.
const DefaultMaxIterations = 10

// DefaultRequestTimeout bounds how long ExecuteTask waits for the serving
// goroutine to reply.
const DefaultRequestTimeout = 5 * time.Minute

// Config describes a specialized agent.
type Config struct {
	// Name is the agent's actor name, unique within the runtime.
	Name string

	// Description tells the router and supervisor what the agent is for.
	Description string

	// SystemPrompt frames the agent's reasoning. Tool descriptions and the
	// decision format are appended automatically.
	SystemPrompt string

	// MaxIterations bounds the reasoning loop. Zero means DefaultMaxIterations.
	MaxIterations int

	// RequestTimeout bounds ExecuteTask's wait for a reply. Zero means
	// DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// Option configures a Specialized agent.
type Option func(*Specialized)

// WithLogger sets the agent's logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Specialized) { s.logger = l }
}

// WithTools registers tools with the agent's private registry. Registration
// conflicts surface from NewSpecialized.
func WithTools(tools ...tool.Tool) Option {
	return func(s *Specialized) { s.pendingTools = append(s.pendingTools, tools...) }
}

// WithExecutorOptions forwards options to the agent's tool executor.
func WithExecutorOptions(opts ...tool.ExecutorOption) Option {
	return func(s *Specialized) { s.executorOpts = append(s.executorOpts, opts...) }
}

// Specialized is an agent with a fixed purpose and a private tool set. Its
// registry and step histories are owned by the agent alone; two agents never
// share either, so concurrent tasks cannot interleave state.
type Specialized struct {
	cfg      Config
	router   *actor.Router
	mailbox  *actor.Mailbox
	model    model.Model
	registry *tool.Registry
	executor *tool.Executor
	logger   logging.Logger

	pendingTools []tool.Tool
	executorOpts []tool.ExecutorOption
}

// NewSpecialized creates a specialized agent and registers its mailbox under
// cfg.Name. Call Run to start serving tasks.
func NewSpecialized(router *actor.Router, m model.Model, cfg Config, opts ...Option) (*Specialized, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent config: empty name")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	s := &Specialized{
		cfg:      cfg,
		router:   router,
		model:    m,
		registry: tool.NewRegistry(),
		logger:   logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, t := range s.pendingTools {
		if err := s.registry.Register(t); err != nil {
			return nil, fmt.Errorf("agent %q: %w", cfg.Name, err)
		}
	}
	s.pendingTools = nil
	s.executor = tool.NewExecutor(s.registry, s.executorOpts...)
	s.executorOpts = nil

	mb, err := router.Register(cfg.Name)
	if err != nil {
		return nil, err
	}
	s.mailbox = mb
	return s, nil
}

// Name returns the agent's actor name.
func (s *Specialized) Name() string { return s.cfg.Name }

// Description returns the agent's purpose description.
func (s *Specialized) Description() string { return s.cfg.Description }

// Identity returns the agent's actor identity.
func (s *Specialized) Identity() actor.Identity { return s.mailbox.Owner() }

// Tools returns the names of the agent's registered tools.
func (s *Specialized) Tools() []string { return s.registry.Names() }

// Run serves the agent's mailbox until ctx ends, then deregisters. Tasks are
// processed one at a time in arrival order.
func (s *Specialized) Run(ctx context.Context) {
	defer s.router.Deregister(s.mailbox.Owner())
	s.router.Serve(ctx, s.mailbox, func(ctx context.Context, env actor.Envelope) {
		tm, ok := env.Message.(TaskMessage)
		if !ok {
			s.logger.Warn("unexpected message", "agent", s.cfg.Name, "kind", env.Message.Kind())
			return
		}
		resp := s.process(ctx, tm.Task)
		if !env.Reply(ResponseMessage{Response: resp}) {
			if err := s.router.Send(ctx, s.cfg.Name, env.Sender, ResponseMessage{Response: resp}); err != nil {
				s.logger.Warn("response undeliverable", "agent", s.cfg.Name, "to", env.Sender, "error", err)
			}
		}
	})
}

// ExecuteTask submits a task through the agent's mailbox and waits for the
// response. The agent must be running.
func (s *Specialized) ExecuteTask(ctx context.Context, task core.Task) core.Response {
	reply, err := s.router.Request(ctx, s.cfg.Name+":caller", s.cfg.Name, TaskMessage{Task: task}, s.cfg.RequestTimeout)
	if err != nil {
		return core.NewFailureResponse(s.cfg.Name, core.FailureRouting, err.Error())
	}
	rm, ok := reply.(ResponseMessage)
	if !ok {
		return core.NewFailureResponse(s.cfg.Name, core.FailureRouting,
			fmt.Sprintf("unexpected reply kind %q", reply.Kind()))
	}
	return rm.Response
}

// process runs the bounded think/act/observe loop for one task. The loop is
// purely mechanical: it decodes decisions, executes actions and feeds
// observations back; it never judges the quality of the reasoning.
func (s *Specialized) process(ctx context.Context, task core.Task) core.Response {
	start := time.Now()

	maxIter := task.MaxIterations
	if maxIter <= 0 {
		maxIter = s.cfg.MaxIterations
	}

	messages := []model.Message{
		model.SystemMessage(s.systemPrompt()),
		model.UserMessage(taskPrompt(task)),
	}

	var steps []core.Step
	finish := func(r core.Response) core.Response {
		r.Agent = s.cfg.Name
		r.Iterations = len(steps)
		r.Steps = steps
		r.Duration = time.Since(start)
		return r
	}

	for iter := 1; iter <= maxIter; iter++ {
		if iter == maxIter {
			messages = append(messages, model.UserMessage(finalIterationPrompt))
		}

		raw, err := s.model.Chat(ctx, messages)
		if err != nil {
			return finish(core.NewFailureResponse("", core.FailureModel, err.Error()))
		}

		decision, err := model.DecodeAgentDecision(raw)
		if err != nil {
			return finish(core.NewFailureResponse("", core.FailureModel, err.Error()))
		}

		if decision.IsFinal {
			steps = append(steps, core.Step{
				Iteration: iter,
				Thought:   decision.Thought,
				Final:     true,
			})
			return finish(core.NewResponse("", decision.FinalAnswer.String()))
		}

		// Acting: every tool failure becomes an observation, never a crash.
		res, err := s.executor.Execute(ctx, decision.Action.Tool, decision.Action.Input)
		var observation string
		if err != nil {
			observation = "tool rejected: " + err.Error()
		} else {
			observation = res.Observation()
		}

		steps = append(steps, core.Step{
			Iteration:   iter,
			Thought:     decision.Thought,
			Action:      &core.Action{Tool: decision.Action.Tool, Args: decision.Action.Input},
			Observation: observation,
		})

		s.logger.Debug("reasoning step",
			"agent", s.cfg.Name,
			"iteration", iter,
			"tool", decision.Action.Tool,
		)

		messages = append(messages,
			model.AssistantMessage(raw),
			model.UserMessage(observationPrompt(observation, maxIter-iter)),
		)
	}

	return finish(core.NewFailureResponse("", core.FailureIterationLimit,
		fmt.Sprintf("no final answer after %d iterations", maxIter)))
}

func (s *Specialized) systemPrompt() string {
	prompt := s.cfg.SystemPrompt
	if prompt == "" {
		prompt = fmt.Sprintf("You are %s. %s", s.cfg.Name, s.cfg.Description)
	}
	if s.registry.Len() > 0 {
		prompt += "\n\nAvailable tools:\n" + s.registry.Describe()
	} else {
		prompt += "\n\nYou have no tools. Answer directly."
	}
	return prompt + "\n\n" + decisionFormatPrompt
}

func taskPrompt(task core.Task) string {
	prompt := "Task: " + task.Description
	if len(task.Context) > 0 {
		if data, err := json.Marshal(task.Context); err == nil {
			prompt += "\n\nContext from previous steps:\n" + string(data)
		}
	}
	return prompt
}

func observationPrompt(observation string, remaining int) string {
	return fmt.Sprintf("Observation: %s\n\nYou have %d iterations left. Respond with your next decision.",
		observation, remaining)
}
