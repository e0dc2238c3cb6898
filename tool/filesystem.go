package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/actormesh/internal/util"
)

// DefaultMaxFileBytes caps file reads when no limit option is given.
const DefaultMaxFileBytes = 256 * 1024

// FSOption configures the filesystem tools.
type FSOption func(*fsConfig)

type fsConfig struct {
	root     string
	maxBytes int64
}

// WithRoot confines all paths to the given directory. Paths resolving
// outside it are rejected during execution with a failed result.
func WithRoot(dir string) FSOption {
	return func(c *fsConfig) { c.root = filepath.Clean(dir) }
}

// WithMaxFileBytes caps the number of bytes returned by file reads.
func WithMaxFileBytes(n int64) FSOption {
	return func(c *fsConfig) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

func newFSConfig(opts []FSOption) fsConfig {
	c := fsConfig{maxBytes: DefaultMaxFileBytes}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// resolve maps a user supplied path into the configured root, rejecting
// escapes via .. segments.
func (c fsConfig) resolve(p string) (string, error) {
	if c.root == "" {
		return filepath.Clean(p), nil
	}
	joined := filepath.Clean(filepath.Join(c.root, p))
	if joined != c.root && !strings.HasPrefix(joined, c.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the allowed directory", p)
	}
	return joined, nil
}

// NewReadFileTool creates a tool that reads a file and returns its content,
// truncated to the configured byte limit.
func NewReadFileTool(opts ...FSOption) Tool {
	cfg := newFSConfig(opts)
	meta := Metadata{
		Name:        "read_file",
		Description: "Read the content of a file at the given path.",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "Path of the file to read", Required: true},
		},
		Idempotent: true,
	}
	return &fsTool{meta: meta, schema: meta.Schema(), run: func(_ context.Context, args map[string]any) (Result, error) {
		p, _ := args["path"].(string)
		path, err := cfg.resolve(p)
		if err != nil {
			return FailureResult(err.Error()), nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return FailureResult(err.Error()), nil
		}
		if int64(len(data)) > cfg.maxBytes {
			data = data[:cfg.maxBytes]
			return SuccessResult(string(data) + "\n[truncated]"), nil
		}
		return SuccessResult(string(data)), nil
	}}
}

// NewWriteFileTool creates a tool that writes content to a file, creating
// parent directories as needed. Writing identical content twice has the same
// effect as once, so the tool is idempotent.
func NewWriteFileTool(opts ...FSOption) Tool {
	cfg := newFSConfig(opts)
	meta := Metadata{
		Name:        "write_file",
		Description: "Write content to a file at the given path, replacing any existing content.",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "Path of the file to write", Required: true},
			{Name: "content", Type: "string", Description: "Content to write", Required: true},
		},
		Idempotent: true,
	}
	return &fsTool{meta: meta, schema: meta.Schema(), run: func(_ context.Context, args map[string]any) (Result, error) {
		p, _ := args["path"].(string)
		path, err := cfg.resolve(p)
		if err != nil {
			return FailureResult(err.Error()), nil
		}
		content, _ := args["content"].(string)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return FailureResult(err.Error()), nil
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return FailureResult(err.Error()), nil
		}
		return SuccessResult(fmt.Sprintf("wrote %d bytes to %s", len(content), path)), nil
	}}
}

// NewListDirTool creates a tool that lists directory entries, one per line,
// directories suffixed with a slash.
func NewListDirTool(opts ...FSOption) Tool {
	cfg := newFSConfig(opts)
	meta := Metadata{
		Name:        "list_dir",
		Description: "List the entries of a directory.",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "Directory to list, defaults to the current directory"},
		},
		Idempotent: true,
	}
	return &fsTool{meta: meta, schema: meta.Schema(), run: func(_ context.Context, args map[string]any) (Result, error) {
		p := "."
		if v, ok := args["path"].(string); ok && v != "" {
			p = v
		}
		path, err := cfg.resolve(p)
		if err != nil {
			return FailureResult(err.Error()), nil
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return FailureResult(err.Error()), nil
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		sort.Strings(names)
		return SuccessResult(strings.Join(names, "\n")), nil
	}}
}

// fsTool is the shared implementation behind the filesystem tools.
type fsTool struct {
	meta   Metadata
	schema map[string]any
	run    func(ctx context.Context, args map[string]any) (Result, error)
}

func (t *fsTool) Metadata() Metadata { return t.meta }

func (t *fsTool) Validate(args map[string]any) error {
	return util.ValidateParameters(args, t.schema)
}

func (t *fsTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	return t.run(ctx, args)
}

var _ Tool = (*fsTool)(nil)
