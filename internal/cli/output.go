package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-medbot/internal/upload"
)

// warnNonWAVExtension writes a warning to w if path has an extension other
// than .wav. Recordings are always WAV regardless of the name.
func warnNonWAVExtension(w io.Writer, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" && ext != ".wav" {
		_, _ = fmt.Fprintf(w, "Warning: output is WAV regardless of %s extension\n", ext)
	}
}

// writeFileExclusive writes src to path.
// It fails if the file already exists (O_EXCL), preventing accidental overwrites.
// On write failure, the partial file is removed.
func writeFileExclusive(path string, src io.WriterTo) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("output file already exists: %s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		if _, err := src.WriteTo(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}
	return nil
}

// printReply writes the service's answer to stdout and its context to stderr.
func printReply(stdout, stderr io.Writer, r *upload.Reply) {
	if r.ExtractedContext != "" {
		label := "Heard"
		if r.InputType == string(upload.KindImage) {
			label = "Extracted from image"
		}
		_, _ = fmt.Fprintf(stderr, "%s: %s\n", label, r.ExtractedContext)
	}
	_, _ = fmt.Fprintln(stdout, strings.TrimSpace(r.Response))
	if r.Disclaimer != "" {
		_, _ = fmt.Fprintf(stdout, "\n%s\n", r.Disclaimer)
	}
}

// readLines delivers lines from r until EOF, then closes the channel.
// The reading goroutine ends only when r does.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// confirm prints prompt and waits for a yes/no answer. EOF counts as no.
func confirm(ctx context.Context, w io.Writer, lines <-chan string, prompt string) (bool, error) {
	_, _ = fmt.Fprint(w, prompt)
	select {
	case line, ok := <-lines:
		if !ok {
			_, _ = fmt.Fprintln(w)
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
