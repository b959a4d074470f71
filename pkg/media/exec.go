package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"course-archiver/pkg/utils"
)

const defaultCommandTimeout = 30 * time.Minute

// runCommand executes an external tool, capturing stderr for diagnostics.
// A missing binary is reported as ErrMissingBinary, any other failure as
// ErrOptimization.
func runCommand(ctx context.Context, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", utils.ErrMissingBinary, name)
	}
	detail := strings.TrimSpace(stderr.String())
	if len(detail) > 500 {
		detail = detail[:500]
	}
	return fmt.Errorf("%w: %s %s: %w (%s)", utils.ErrOptimization, name, strings.Join(args, " "), err, detail)
}

// lookupBinaries returns the subset of names not found on PATH.
func lookupBinaries(names []string) []string {
	var missing []string
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}
