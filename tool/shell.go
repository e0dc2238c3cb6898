package tool

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hupe1980/actormesh/internal/util"
)

// DefaultMaxShellOutput caps captured command output.
const DefaultMaxShellOutput = 64 * 1024

// ShellOption configures the shell tool.
type ShellOption func(*ShellTool)

// WithWorkDir sets the working directory for executed commands.
func WithWorkDir(dir string) ShellOption {
	return func(t *ShellTool) { t.workDir = dir }
}

// WithMaxOutput caps the number of output bytes returned.
func WithMaxOutput(n int) ShellOption {
	return func(t *ShellTool) {
		if n > 0 {
			t.maxOutput = n
		}
	}
}

// ShellTool runs a command through the system shell and captures its
// combined output. Commands may have arbitrary side effects, so the tool is
// not idempotent and is never retried automatically.
type ShellTool struct {
	meta      Metadata
	schema    map[string]any
	workDir   string
	maxOutput int
}

// NewShellTool creates a shell tool.
func NewShellTool(opts ...ShellOption) *ShellTool {
	meta := Metadata{
		Name:        "shell",
		Description: "Run a shell command and return its combined stdout and stderr.",
		Parameters: []Parameter{
			{Name: "command", Type: "string", Description: "Command line to execute", Required: true},
		},
	}
	t := &ShellTool{meta: meta, schema: meta.Schema(), maxOutput: DefaultMaxShellOutput}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Metadata implements Tool.
func (t *ShellTool) Metadata() Metadata { return t.meta }

// Validate implements Tool.
func (t *ShellTool) Validate(args map[string]any) error {
	return util.ValidateParameters(args, t.schema)
}

// Execute implements Tool. The command is killed when ctx ends; a non-zero
// exit is a failed result carrying the captured output.
func (t *ShellTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	command, _ := args["command"].(string)
	if strings.TrimSpace(command) == "" {
		return FailureResult("empty command"), nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = t.workDir

	out, err := cmd.CombinedOutput()
	if len(out) > t.maxOutput {
		out = append(out[:t.maxOutput], []byte("\n[truncated]")...)
	}
	if err != nil {
		return FailureResult(fmt.Sprintf("%v: %s", err, strings.TrimSpace(string(out)))), nil
	}
	return SuccessResult(strings.TrimSpace(string(out))), nil
}

var _ Tool = (*ShellTool)(nil)
