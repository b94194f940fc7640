// internal/launcher/launcher.go
// Package launcher fans a batch of research assignments out across crawler
// processes, one per subject, each with its own browser debugging port.
package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lodestar-research/lodestar/internal/config"
)

// Assignment is one subject to research.
type Assignment struct {
	Subject string   `json:"subject"`
	Topic   string   `json:"topic"`
	Goal    string   `json:"goal"`
	Sources []string `json:"sources"`
}

// Launcher spawns one crawl process per assignment.
type Launcher struct {
	cfg    config.LauncherConfig
	binary string
	logger *zap.Logger
}

// New resolves the current executable as the crawl binary.
func New(cfg config.LauncherConfig, logger *zap.Logger) (*Launcher, error) {
	binary, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("launcher: resolve executable: %w", err)
	}
	return &Launcher{cfg: cfg, binary: binary, logger: logger.Named("launcher")}, nil
}

// Run executes all assignments, in parallel or sequentially per config. Each
// process gets a distinct debugging port so the browsers never collide. A
// failing assignment does not stop the others; the first failure is returned
// after everything finishes.
func (l *Launcher) Run(ctx context.Context, assignments []Assignment) error {
	if len(assignments) == 0 {
		return fmt.Errorf("launcher: no assignments")
	}

	group, ctx := errgroup.WithContext(ctx)
	if !l.cfg.Parallel {
		group.SetLimit(1)
	}

	var firstErr error
	errs := make([]error, len(assignments))
	for i, assignment := range assignments {
		i, assignment := i, assignment
		group.Go(func() error {
			errs[i] = l.runOne(ctx, i, assignment)
			// Always nil: one bad assignment must not cancel the group.
			return nil
		})
	}
	_ = group.Wait()

	for _, err := range errs {
		if err != nil {
			firstErr = err
			break
		}
	}
	return firstErr
}

func (l *Launcher) runOne(ctx context.Context, idx int, assignment Assignment) error {
	runCtx := ctx
	if l.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, l.cfg.JobTimeout)
		defer cancel()
	}

	args := BuildArgs(assignment, l.cfg.BasePort+idx)
	log := l.logger.With(zap.Int("assignment", idx), zap.String("subject", assignment.Subject))
	log.Info("Launching crawl process.", zap.Strings("args", args))

	cmd := exec.CommandContext(runCtx, l.binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		log.Error("Crawl process failed.", zap.Error(err))
		return fmt.Errorf("launcher: assignment %d (%s): %w", idx, assignment.Subject, err)
	}
	log.Info("Crawl process finished.")
	return nil
}

// BuildArgs assembles the crawl subcommand invocation for one assignment.
func BuildArgs(assignment Assignment, debugPort int) []string {
	args := []string{
		"crawl",
		"--subject", assignment.Subject,
		"--debug-port", fmt.Sprintf("%d", debugPort),
	}
	if assignment.Topic != "" {
		args = append(args, "--topic", assignment.Topic)
	}
	if assignment.Goal != "" {
		args = append(args, "--goal", assignment.Goal)
	}
	if len(assignment.Sources) > 0 {
		args = append(args, "--sources", strings.Join(assignment.Sources, ","))
	}
	return args
}
