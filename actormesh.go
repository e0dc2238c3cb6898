// Package actormesh assembles the runtime: a message router, a health
// monitor, specialized agents, a routing agent and a supervisor, wired
// together from Settings and exposed through a small façade.
package actormesh

import (
	"context"
	"fmt"
	"sync"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/hupe1980/actormesh/actor"
	"github.com/hupe1980/actormesh/agent"
	"github.com/hupe1980/actormesh/config"
	"github.com/hupe1980/actormesh/core"
	"github.com/hupe1980/actormesh/health"
	"github.com/hupe1980/actormesh/logging"
	"github.com/hupe1980/actormesh/metrics"
	"github.com/hupe1980/actormesh/model"
	"github.com/hupe1980/actormesh/model/anthropic"
	"github.com/hupe1980/actormesh/model/openai"
	"github.com/hupe1980/actormesh/session"
	"github.com/hupe1980/actormesh/tool"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithSettings replaces the default settings.
func WithSettings(s config.Settings) Option {
	return func(r *Runtime) { r.settings = s }
}

// WithModel injects the language model, overriding provider construction
// from settings.
func WithModel(m model.Model) Option {
	return func(r *Runtime) { r.model = m }
}

// WithLogger sets the runtime logger, shared by all components.
func WithLogger(l logging.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithMetrics enables operational counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runtime) { r.metrics = m }
}

// WithSessionStore records every task/response exchange in the store.
func WithSessionStore(s session.Store) Option {
	return func(r *Runtime) { r.store = s }
}

// WithSessionID sets the session id exchanges are recorded under. Defaults
// to a fresh uuid per runtime.
func WithSessionID(id string) Option {
	return func(r *Runtime) { r.sessionID = id }
}

// WithLivenessFaultHandler installs a callback invoked when the health
// monitor declares an actor dead. The runtime never restarts actors itself;
// restart policy belongs to this handler.
func WithLivenessFaultHandler(fn func(health.Fault)) Option {
	return func(r *Runtime) { r.onFault = fn }
}

// Runtime owns the actor substrate and the agents running on it.
type Runtime struct {
	settings  config.Settings
	router    *actor.Router
	monitor   *health.Monitor
	model     model.Model
	logger    logging.Logger
	metrics   *metrics.Metrics
	store     session.Store
	sessionID string
	onFault   func(health.Fault)

	taskRouter *agent.TaskRouter
	supervisor *agent.Supervisor

	mu      sync.Mutex
	agents  map[string]*agent.Specialized
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New assembles a runtime. Agents are added with RegisterAgent or
// RegisterDefaultAgents before Start.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		settings:  config.Default(),
		logger:    logging.NoOpLogger{},
		sessionID: uuid.NewString(),
		agents:    make(map[string]*agent.Specialized),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.model == nil {
		m, err := buildModel(r.settings.LLM)
		if err != nil {
			return nil, err
		}
		r.model = m
	}
	if r.settings.LLM.RequestsPerSecond > 0 {
		r.model = model.NewRateLimited(r.model, r.settings.LLM.RequestsPerSecond, 1)
	}
	if r.metrics != nil {
		r.model = &instrumentedModel{inner: r.model, metrics: r.metrics}
	}

	r.router = actor.NewRouter(
		actor.WithMailboxCapacity(r.settings.System.MailboxCapacity),
		actor.WithRouterLogger(r.logger),
		actor.WithDeliveryObserver(func(string, string) { r.metrics.MessageRouted() }),
	)

	monitor, err := health.NewMonitor(r.router,
		health.WithInterval(r.settings.System.HeartbeatInterval),
		health.WithMonitorLogger(r.logger),
		health.WithFaultHandler(func(f health.Fault) {
			r.metrics.LivenessFault()
			if r.onFault != nil {
				r.onFault(f)
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	r.monitor = monitor

	r.taskRouter, err = agent.NewTaskRouter(r.router, r.model,
		agent.WithTaskRouterLogger(r.logger),
		agent.WithTaskRouterTimeout(r.settings.System.RequestTimeout),
	)
	if err != nil {
		return nil, err
	}

	r.supervisor, err = agent.NewSupervisor(r.router, r.model,
		agent.WithSupervisorLogger(r.logger),
		agent.WithMaxOrchestrationSteps(r.settings.Agent.MaxOrchestrationSteps),
		agent.WithSupervisorTimeout(r.settings.System.RequestTimeout),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func buildModel(cfg config.LLMSettings) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey()
		}), nil
	case "mock":
		return model.NewMockModel(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// RegisterAgent creates a specialized agent on the runtime's router and
// makes it eligible for routing and delegation. Must be called before Start.
func (r *Runtime) RegisterAgent(cfg agent.Config, opts ...agent.Option) (*agent.Specialized, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil, fmt.Errorf("runtime already started")
	}

	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = r.settings.Agent.MaxIterations
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = r.settings.System.RequestTimeout
	}

	base := []agent.Option{
		agent.WithLogger(r.logger),
		agent.WithExecutorOptions(
			tool.WithExecutionTimeout(r.settings.Tools.Timeout),
			tool.WithMaxRetries(r.settings.Tools.MaxRetries),
			tool.WithExecutorLogger(r.logger),
			tool.WithExecutionObserver(r.metrics.ToolExecuted),
		),
	}
	a, err := agent.NewSpecialized(r.router, r.model, cfg, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	r.agents[a.Name()] = a
	r.taskRouter.AddAgent(a.Name(), a.Description())
	r.supervisor.AddAgent(a.Name(), a.Description())
	return a, nil
}

// RegisterDefaultAgents registers the standard agent set (file operations,
// shell, web, general).
func (r *Runtime) RegisterDefaultAgents() error {
	for _, spec := range agent.DefaultSpecs() {
		if _, err := r.RegisterAgent(spec.Config, agent.WithTools(spec.Tools...)); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the monitor, the router agent, the supervisor and every
// registered agent, and puts them all under health watch.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("runtime already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.spawn(func() { r.monitor.Run(runCtx) })
	r.spawn(func() { r.taskRouter.Run(runCtx) })
	r.spawn(func() { r.supervisor.Run(runCtx) })
	for _, a := range r.agents {
		a := a
		r.spawn(func() { a.Run(runCtx) })
	}

	if err := r.monitor.Watch(runCtx, r.taskRouter.Identity()); err != nil {
		return err
	}
	if err := r.monitor.Watch(runCtx, r.supervisor.Identity()); err != nil {
		return err
	}
	for _, a := range r.agents {
		if err := r.monitor.Watch(runCtx, a.Identity()); err != nil {
			return err
		}
	}

	r.started = true
	r.logger.Info("runtime started", "agents", len(r.agents), "session", r.sessionID)
	return nil
}

// Shutdown stops all actors and waits for their goroutines to exit.
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	cancel := r.cancel
	r.started = false
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	r.logger.Info("runtime stopped")
}

func (r *Runtime) spawn(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

// ExecuteTask submits a task directly to the named agent and waits for its
// response.
func (r *Runtime) ExecuteTask(ctx context.Context, agentName string, task core.Task) (core.Response, error) {
	r.mu.Lock()
	a, ok := r.agents[agentName]
	r.mu.Unlock()
	if !ok {
		return core.Response{}, fmt.Errorf("agent %q: %w", agentName, actor.ErrUnknownRecipient)
	}

	resp := a.ExecuteTask(ctx, task)
	r.record(ctx, task, resp)
	return resp, nil
}

// Route classifies the task and dispatches it to the best suited agent,
// returning that agent's response unchanged. Unclassifiable tasks fail with
// agent.ErrUnclassifiable and are never dispatched.
func (r *Runtime) Route(ctx context.Context, task core.Task) (core.Response, error) {
	resp, err := r.taskRouter.Route(ctx, task)
	if err != nil {
		return core.Response{}, err
	}
	r.record(ctx, task, resp)
	return resp, nil
}

// Orchestrate hands the task to the supervisor, which decomposes it across
// the registered agents.
func (r *Runtime) Orchestrate(ctx context.Context, task core.Task) core.Response {
	resp := r.supervisor.Orchestrate(ctx, task)
	r.record(ctx, task, resp)
	return resp
}

// Health returns the monitor's current view of all watched actors.
func (r *Runtime) Health(ctx context.Context) (map[string]health.Status, error) {
	return r.monitor.Statuses(ctx, r.settings.System.RequestTimeout)
}

// Faults exposes the health monitor's death events.
func (r *Runtime) Faults() <-chan health.Fault { return r.monitor.Faults() }

// Agents returns the names of the registered specialized agents.
func (r *Runtime) Agents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}

func (r *Runtime) record(ctx context.Context, task core.Task, resp core.Response) {
	r.metrics.AgentTaskCompleted(resp.Agent, resp.OK())
	if r.store == nil {
		return
	}
	if err := r.store.Append(ctx, r.sessionID, session.NewEntry(task, resp)); err != nil {
		r.logger.Warn("session append failed", "session", r.sessionID, "error", err)
	}
}

// instrumentedModel counts model calls without changing behavior.
type instrumentedModel struct {
	inner   model.Model
	metrics *metrics.Metrics
}

func (m *instrumentedModel) Chat(ctx context.Context, messages []model.Message) (string, error) {
	out, err := m.inner.Chat(ctx, messages)
	m.metrics.ModelCalled(m.inner.Info().Provider, err == nil)
	return out, err
}

func (m *instrumentedModel) Info() model.Info { return m.inner.Info() }
