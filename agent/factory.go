package agent

import (
	"github.com/hupe1980/actormesh/actor"
	"github.com/hupe1980/actormesh/model"
	"github.com/hupe1980/actormesh/tool"
)

// Default agent names.
const (
	FileOpsAgentName = "file_ops_agent"
	ShellAgentName   = "shell_agent"
	WebAgentName     = "web_agent"
	GeneralAgentName = "general_agent"
)

// Spec pairs an agent configuration with its tool set.
type Spec struct {
	Config Config
	Tools  []tool.Tool
}

// DefaultSpecs returns the standard agent set: file operations, shell, web
// and a tool-less general agent. Each spec carries only the tools of its
// specialty, so the resulting agents are isolated by construction.
func DefaultSpecs() []Spec {
	return []Spec{
		{
			Config: Config{
				Name:        FileOpsAgentName,
				Description: "Reads, writes and lists files on the local filesystem.",
			},
			Tools: []tool.Tool{
				tool.NewReadFileTool(),
				tool.NewWriteFileTool(),
				tool.NewListDirTool(),
			},
		},
		{
			Config: Config{
				Name:        ShellAgentName,
				Description: "Runs shell commands and reports their output.",
			},
			Tools: []tool.Tool{tool.NewShellTool()},
		},
		{
			Config: Config{
				Name:        WebAgentName,
				Description: "Fetches web pages and HTTP APIs.",
			},
			Tools: []tool.Tool{tool.NewHTTPTool(tool.WithReadOnly())},
		},
		{
			Config: Config{
				Name:        GeneralAgentName,
				Description: "Answers general questions without tools.",
			},
		},
	}
}

// DefaultAgents constructs the standard agent set on the given router.
func DefaultAgents(router *actor.Router, m model.Model, opts ...Option) ([]*Specialized, error) {
	specs := DefaultSpecs()
	agents := make([]*Specialized, 0, len(specs))
	for _, spec := range specs {
		agentOpts := append([]Option{WithTools(spec.Tools...)}, opts...)
		a, err := NewSpecialized(router, m, spec.Config, agentOpts...)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}
