package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/franz/music-catalog/internal/util"
	"github.com/schollz/progressbar/v3"
)

// Feature vectors make for long lines
const maxRecordLine = 4 * 1024 * 1024

// jsonRecord is one decoded line of a JSONL input. Err is set when the line
// is not valid JSON for T; the caller decides whether that is fatal.
type jsonRecord[T any] struct {
	Line  int
	Value T
	Err   error
}

// readJSONL decodes every non-blank line of r. Only read failures are
// returned as an error.
func readJSONL[T any](r io.Reader) ([]jsonRecord[T], error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxRecordLine)

	var out []jsonRecord[T]
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		rec := jsonRecord[T]{Line: line}
		if err := json.Unmarshal(raw, &rec.Value); err != nil {
			rec.Err = fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return out, nil
}

// openInput opens path for reading; "-" is stdin
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// newProgressBar returns a bar on interactive terminals, nil otherwise
func newProgressBar(total int, description, unit string) *progressbar.ProgressBar {
	// Debug lines would tear through the bar
	if !util.IsTerminal(os.Stdout.Fd()) || util.IsQuiet() || util.IsVerbose() {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
