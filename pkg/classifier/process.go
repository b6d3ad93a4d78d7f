package classifier

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/google/shlex"
	"github.com/jingkaihe/skillgate/pkg/osutil"
	"github.com/pkg/errors"
)

// DefaultProcessCommand runs a local model through Ollama.
const DefaultProcessCommand = "ollama run llama3"

const maxStderrInError = 512

// Process runs a local model-runner command per call: the prompt is piped
// to stdin and stdout is the verdict.
type Process struct {
	argv []string
}

// NewProcess creates the backend. cfg.Command is split with shell quoting
// rules; when empty, DefaultProcessCommand is used with cfg.Model
// substituted for the model name if set.
func NewProcess(cfg Config) (*Process, error) {
	argv, err := shlex.Split(cfg.Command)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse model runner command %q", cfg.Command)
	}
	if len(argv) == 0 {
		argv = strings.Fields(DefaultProcessCommand)
		if cfg.Model != "" {
			argv[len(argv)-1] = cfg.Model
		}
	}

	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, errors.Wrapf(err, "model runner %q not found", argv[0])
	}

	return &Process{argv: argv}, nil
}

// Name returns "process".
func (p *Process) Name() string {
	return BackendProcess
}

// Command returns the argv run for every call.
func (p *Process) Command() []string {
	return p.argv
}

// Complete runs the command once. The process group is killed when ctx is done.
func (p *Process) Complete(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	osutil.BindToContext(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(prompt)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.Wrapf(ctxErr, "model runner %q interrupted", p.argv[0])
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderrInError {
			msg = msg[:maxStderrInError] + "..."
		}
		return "", errors.Wrapf(err, "model runner %q failed: %s", p.argv[0], msg)
	}

	return stdout.String(), nil
}
