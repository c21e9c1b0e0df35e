package activation

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// maxTranscriptTail is how much of the end of a transcript is scanned. Only
// the latest assistant message matters.
const maxTranscriptTail = 2 << 20

// TranscriptInfo is what the scorer needs from a session transcript.
type TranscriptInfo struct {
	// WindowPct is the share of the context window used by the latest
	// assistant turn, in [0,100].
	WindowPct float64
	// LastAssistant is the text of the latest assistant message.
	LastAssistant string
}

type opener func(path string) (io.ReadCloser, error)

// TranscriptReader reads Claude Code JSONL transcripts under a timeout.
type TranscriptReader struct {
	Timeout      time.Duration
	WindowTokens int

	open opener
}

// Read scans the tail of the transcript at path. When the timeout expires
// the reader is closed, the scanning goroutine is awaited and ctx's error is
// returned.
func (r TranscriptReader) Read(ctx context.Context, path string) (TranscriptInfo, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	open := r.open
	if open == nil {
		open = openTail
	}

	rc, err := open(path)
	if err != nil {
		return TranscriptInfo{}, fmt.Errorf("opening transcript: %w", err)
	}

	type result struct {
		info TranscriptInfo
		err  error
	}
	done := make(chan result, 1)
	go func() {
		info, err := scanTranscript(ctx, rc, r.WindowTokens)
		done <- result{info, err}
	}()

	select {
	case res := <-done:
		rc.Close()
		return res.info, res.err
	case <-ctx.Done():
		rc.Close()
		<-done
		return TranscriptInfo{}, fmt.Errorf("reading transcript: %w", ctx.Err())
	}
}

// openTail opens path positioned at most maxTranscriptTail bytes from the end.
func openTail(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if info, err := f.Stat(); err == nil && info.Size() > maxTranscriptTail {
		if _, err := f.Seek(-maxTranscriptTail, io.SeekEnd); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

type transcriptLine struct {
	Type    string `json:"type"`
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
		Usage   *struct {
			InputTokens              int `json:"input_tokens"`
			CacheReadInputTokens     int `json:"cache_read_input_tokens"`
			CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

func scanTranscript(ctx context.Context, r io.Reader, windowTokens int) (TranscriptInfo, error) {
	var info TranscriptInfo
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return TranscriptInfo{}, err
		}
		var line transcriptLine
		// The first line after a tail seek is usually partial.
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			continue
		}
		if line.Type != "assistant" && line.Message.Role != "assistant" {
			continue
		}
		if text := contentText(line.Message.Content); text != "" {
			info.LastAssistant = text
		}
		if u := line.Message.Usage; u != nil && windowTokens > 0 {
			used := u.InputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
			info.WindowPct = clampPct(float64(used) * 100 / float64(windowTokens))
		}
	}
	if err := sc.Err(); err != nil {
		return TranscriptInfo{}, fmt.Errorf("scanning transcript: %w", err)
	}
	return info, nil
}

// contentText joins the text blocks of a message content value, which is
// either a string or a list of typed blocks.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
