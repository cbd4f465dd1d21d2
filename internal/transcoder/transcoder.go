package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"video-insights-go/internal/fetcher"
)

// TranscodeError carries the external process diagnostics verbatim.
type TranscodeError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *TranscodeError) Error() string {
	msg := fmt.Sprintf("command '%s' failed (exit=%d): %v", e.Command, e.ExitCode, e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// NotFound reports whether the binary was missing from PATH.
func (e *TranscodeError) NotFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound)
}

// CommandResult is the captured outcome of one process run.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts process execution for testability.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

// ExecRunner executes commands via os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		return res, err
	}
	return res, nil
}

type Transcoder struct {
	ffmpegPath string
	runner     Runner
	newPath    fetcher.PathFunc
	log        *logrus.Entry
}

func New(ffmpegPath string, runner Runner, newPath fetcher.PathFunc, log *logrus.Entry) *Transcoder {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Transcoder{ffmpegPath: ffmpegPath, runner: runner, newPath: newPath, log: log}
}

// BuildArgs is the fixed speech profile: audio only, metadata stripped, mono
// opus at 12 kbit/s tuned for voice.
func BuildArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-map_metadata", "-1",
		"-ac", "1",
		"-c:a", "libopus",
		"-b:a", "12k",
		"-application", "voip",
		outPath,
	}
}

// Transcode consumes in. The input artifact is always released; on failure
// any partial output is released as well.
func (t *Transcoder) Transcode(ctx context.Context, in *fetcher.Artifact) (*fetcher.Artifact, error) {
	defer in.Release()

	out := fetcher.NewArtifact(t.newPath("speech", ".ogg"))
	args := BuildArgs(in.Path, out.Path)

	res, err := t.runner.Run(ctx, t.ffmpegPath, args...)
	if err != nil {
		_ = out.Release()
		return nil, &TranscodeError{
			Command:  t.ffmpegPath,
			Args:     args,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      err,
		}
	}

	info, err := os.Stat(out.Path)
	if err != nil {
		_ = out.Release()
		return nil, &TranscodeError{
			Command: t.ffmpegPath,
			Args:    args,
			Stderr:  res.Stderr,
			Err:     fmt.Errorf("ffmpeg completed but output file is missing: %w", err),
		}
	}
	out.Size = info.Size()

	t.log.WithFields(logrus.Fields{"path": out.Path, "bytes": out.Size}).Debug("artifact transcoded")
	return out, nil
}
