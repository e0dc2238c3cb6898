package agent

import (
	"context"
	"errors"
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

// ErrUnclassifiable is returned when the model's classification does not
// name a known agent, or cannot be decoded at all. The task is never
// dispatched in that case; there is no fallback agent.
var ErrUnclassifiable = errors.New("task unclassifiable")

// TaskRouterName is the default actor name of the router agent.
const TaskRouterName = "task_router"

// TaskRouterOption configures a TaskRouter.
type TaskRouterOption func(*TaskRouter)

// WithTaskRouterName overrides the router agent's actor name.
func WithTaskRouterName(name string) TaskRouterOption {
	return func(r *TaskRouter) { r.name = name }
}

// WithTaskRouterLogger sets the router agent's logger.
func WithTaskRouterLogger(l logging.Logger) TaskRouterOption {
	return func(r *TaskRouter) { r.logger = l }
}

// WithTaskRouterTimeout bounds the wait for a dispatched agent's response.
func WithTaskRouterTimeout(d time.Duration) TaskRouterOption {
	return func(r *TaskRouter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// TaskRouter classifies incoming tasks with the model and forwards each one,
// verbatim, to the chosen specialized agent. The selected agent's response
// is returned unchanged; the router adds nothing and retries nothing.
type TaskRouter struct {
	name        string
	timeout     time.Duration
	actorRouter *actor.Router
	mailbox     *actor.Mailbox
	model       model.Model
	logger      logging.Logger

	mu     sync.RWMutex
	agents map[string]string // name -> description
}

// NewTaskRouter creates a router agent and registers its mailbox.
func NewTaskRouter(router *actor.Router, m model.Model, opts ...TaskRouterOption) (*TaskRouter, error) {
	r := &TaskRouter{
		name:        TaskRouterName,
		timeout:     DefaultRequestTimeout,
		actorRouter: router,
		model:       m,
		logger:      logging.NoOpLogger{},
		agents:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}

	mb, err := router.Register(r.name)
	if err != nil {
		return nil, err
	}
	r.mailbox = mb
	return r, nil
}

// Name returns the router agent's actor name.
func (r *TaskRouter) Name() string { return r.name }

// Identity returns the router agent's actor identity.
func (r *TaskRouter) Identity() actor.Identity { return r.mailbox.Owner() }

// AddAgent makes an agent eligible for routing.
func (r *TaskRouter) AddAgent(name, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[name] = description
}

// RemoveAgent withdraws an agent from routing.
func (r *TaskRouter) RemoveAgent(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}

// Agents returns the routable agent names in sorted order.
func (r *TaskRouter) Agents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run serves the router agent's mailbox until ctx ends, then deregisters.
func (r *TaskRouter) Run(ctx context.Context) {
	defer r.actorRouter.Deregister(r.mailbox.Owner())
	r.actorRouter.Serve(ctx, r.mailbox, func(ctx context.Context, env actor.Envelope) {
		tm, ok := env.Message.(TaskMessage)
		if !ok {
			r.logger.Warn("unexpected message", "agent", r.name, "kind", env.Message.Kind())
			return
		}
		resp, err := r.Route(ctx, tm.Task)
		if err != nil {
			resp = r.failureResponse(err)
		}
		if !env.Reply(ResponseMessage{Response: resp}) {
			if sendErr := r.actorRouter.Send(ctx, r.name, env.Sender, ResponseMessage{Response: resp}); sendErr != nil {
				r.logger.Warn("response undeliverable", "agent", r.name, "to", env.Sender, "error", sendErr)
			}
		}
	})
}

// Route classifies the task and dispatches it to the chosen agent,
// returning that agent's response unmodified. A classification that cannot
// be decoded or does not name a known, registered agent yields
// ErrUnclassifiable without any dispatch.
func (r *TaskRouter) Route(ctx context.Context, task core.Task) (core.Response, error) {
	r.mu.RLock()
	catalog := make(map[string]string, len(r.agents))
	for name, desc := range r.agents {
		catalog[name] = desc
	}
	r.mu.RUnlock()

	if len(catalog) == 0 {
		return core.Response{}, fmt.Errorf("%w: no agents available", ErrUnclassifiable)
	}

	raw, err := r.model.Chat(ctx, []model.Message{
		model.SystemMessage(r.classificationPrompt(catalog)),
		model.UserMessage("Task: " + task.Description),
	})
	if err != nil {
		return core.Response{}, fmt.Errorf("classification: %w", err)
	}

	decision, err := model.DecodeRoutingDecision(raw)
	if err != nil {
		return core.Response{}, fmt.Errorf("%w: %v", ErrUnclassifiable, err)
	}
	if _, known := catalog[decision.Agent]; !known {
		return core.Response{}, fmt.Errorf("%w: model chose unknown agent %q", ErrUnclassifiable, decision.Agent)
	}
	if !r.actorRouter.Lookup(decision.Agent) {
		return core.Response{}, fmt.Errorf("%w: agent %q is not running", ErrUnclassifiable, decision.Agent)
	}

	r.logger.Info("task routed",
		"agent", decision.Agent,
		"reasoning", decision.Reasoning,
	)

	reply, err := r.actorRouter.Request(ctx, r.name, decision.Agent, TaskMessage{Task: task}, r.timeout)
	if err != nil {
		return core.Response{}, fmt.Errorf("dispatch to %q: %w", decision.Agent, err)
	}
	rm, ok := reply.(ResponseMessage)
	if !ok {
		return core.Response{}, fmt.Errorf("dispatch to %q: unexpected reply kind %q", decision.Agent, reply.Kind())
	}
	return rm.Response, nil
}

func (r *TaskRouter) classificationPrompt(catalog map[string]string) string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("You route tasks to the best suited agent.\n\nAgents:\n")
	for _, name := range names {
		sb.WriteString("- ")
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(catalog[name])
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(routingFormatPrompt)
	return sb.String()
}

func (r *TaskRouter) failureResponse(err error) core.Response {
	kind := core.FailureRouting
	switch {
	case errors.Is(err, ErrUnclassifiable):
		kind = core.FailureUnclassifiable
	case errors.Is(err, model.ErrMalformedDecision):
		kind = core.FailureModel
	}
	return core.NewFailureResponse(r.name, kind, err.Error())
}
