// Package clipboard copies config fragments to the system clipboard, falling
// back to an external copy command when the clipboard library cannot be used.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/metrics"
)

// ErrUnsupported is returned by SystemWriter when no clipboard backend exists.
var ErrUnsupported = errors.New("clipboard: no clipboard backend available")

// Writer puts text on a clipboard.
type Writer interface {
	WriteText(ctx context.Context, text string) error
}

// ClipboardError is returned when both the primary and the fallback path fail.
type ClipboardError struct {
	Primary  error
	Fallback error
}

func (e *ClipboardError) Error() string {
	return fmt.Sprintf("failed to copy text: %v; fallback: %v", e.Primary, e.Fallback)
}

func (e *ClipboardError) Unwrap() []error { return []error{e.Primary, e.Fallback} }

// SystemWriter uses the platform clipboard.
type SystemWriter struct{}

func (SystemWriter) WriteText(ctx context.Context, text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return clipboard.WriteAll(text)
}

// CommandWriter stages the text in a hidden temporary file, feeds it to a
// copy command on stdin and removes the file again.
type CommandWriter struct {
	// Command and arguments; empty selects a per-platform default.
	Command []string
	// Dir holds the temporary file; empty means os.TempDir().
	Dir string
}

// DefaultCommand returns the legacy copy command for the current platform.
func DefaultCommand() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"pbcopy"}
	case "windows":
		return []string{"clip"}
	default:
		return []string{"xclip", "-selection", "clipboard"}
	}
}

func (w CommandWriter) WriteText(ctx context.Context, text string) (err error) {
	argv := w.Command
	if len(argv) == 0 {
		argv = DefaultCommand()
	}

	f, err := os.CreateTemp(w.Dir, ".mask-editor-clip-*")
	if err != nil {
		return fmt.Errorf("stage clipboard text: %w", err)
	}
	defer func() {
		f.Close()
		if rmErr := os.Remove(f.Name()); rmErr != nil && err == nil {
			err = fmt.Errorf("remove staged clipboard text: %w", rmErr)
		}
	}()

	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("stage clipboard text: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("stage clipboard text: %w", err)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = f
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("run %s: %w (%s)", argv[0], err, out)
	}
	return nil
}

// Exporter tries the primary writer first and the fallback second. Both
// receive exactly the same text.
type Exporter struct {
	primary  Writer
	fallback Writer
	metrics  *metrics.Metrics
	log      logger.Module
}

// NewExporter wires the two paths. Nil writers default to SystemWriter and
// CommandWriter{}.
func NewExporter(primary, fallback Writer, m *metrics.Metrics) *Exporter {
	if primary == nil {
		primary = SystemWriter{}
	}
	if fallback == nil {
		fallback = CommandWriter{}
	}
	if m == nil {
		m = metrics.New()
	}
	return &Exporter{primary: primary, fallback: fallback, metrics: m, log: logger.ForModule(nil, "Clipboard")}
}

// Copy puts text on the clipboard. Only when both paths fail is a
// *ClipboardError returned.
func (e *Exporter) Copy(ctx context.Context, text string) error {
	primaryErr := e.primary.WriteText(ctx, text)
	if primaryErr == nil {
		e.metrics.ClipboardCopies.Add(1)
		return nil
	}
	e.log.Debug("primary clipboard failed, using fallback: %v", primaryErr)

	if err := e.fallback.WriteText(ctx, text); err != nil {
		e.metrics.ClipboardFailures.Add(1)
		e.log.Warn("copy failed: %v", err)
		return &ClipboardError{Primary: primaryErr, Fallback: err}
	}
	e.metrics.ClipboardCopies.Add(1)
	e.metrics.ClipboardFallback.Add(1)
	return nil
}
