package document

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner abstracts invocation of the external conversion tools so tests can
// substitute canned output for pdftotext, pdftoppm, and tesseract.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// toolRunner shells out and reports per-invocation timing through the
// loader's logger.
type toolRunner struct {
	logger *slog.Logger
}

// tesseract can emit pages of warnings; failure logs stay bounded.
const maxStderrLog = 4 << 10

func (r toolRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		r.logger.Error("tool invocation failed",
			"tool", name,
			"args", strings.Join(args, " "),
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err,
			"stderr", clip(stderr.String(), maxStderrLog),
		)
		return stdout.Bytes(), stderr.Bytes(), err
	}
	r.logger.Debug("tool invocation ok",
		"tool", name,
		"elapsed_ms", elapsed.Milliseconds(),
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
	)
	return stdout.Bytes(), stderr.Bytes(), nil
}

// clip bounds tool output before it is embedded in a log field or error.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(clipped)"
}
