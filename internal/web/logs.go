package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// maxPartial bounds an unterminated line before it is stored as is.
const maxPartial = 64 * 1024

// LogBuffer keeps the most recent log lines for the logs endpoint.
type LogBuffer struct {
	mu      sync.Mutex
	max     int
	lines   []string
	partial string
	dropped uint64
}

func NewLogBuffer(maxLines int) *LogBuffer {
	if maxLines <= 0 {
		maxLines = 2000
	}
	return &LogBuffer{max: maxLines}
}

// Write implements io.Writer. Text after the last newline is held until
// the rest of its line arrives.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		b.appendLineLocked(b.partial + string(data[:i]))
		b.partial = ""
		data = data[i+1:]
	}
	if len(data) > 0 {
		if len(b.partial)+len(data) > maxPartial {
			b.appendLineLocked(b.partial + string(data))
			b.partial = ""
		} else {
			b.partial += string(data)
		}
	}
	return len(p), nil
}

func (b *LogBuffer) appendLineLocked(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		over := len(b.lines) - b.max
		b.lines = b.lines[over:]
		b.dropped += uint64(over)
	}
}

type LogsResponse struct {
	NowUTC  string   `json:"now_utc"`
	Dropped uint64   `json:"dropped"`
	Lines   []string `json:"lines"`
}

func (b *LogBuffer) Snapshot(tail int) (lines []string, dropped uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped = b.dropped
	if tail <= 0 {
		tail = 200
	}
	if tail > len(b.lines) {
		tail = len(b.lines)
	}
	start := len(b.lines) - tail
	lines = append([]string(nil), b.lines[start:]...)
	return lines, dropped
}

// Sync lets the buffer serve as a zap sink.
func (b *LogBuffer) Sync() error { return nil }

func (b *LogBuffer) handler(c *gin.Context) {
	tail := 200
	if s := strings.TrimSpace(c.Query("tail")); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 5000 {
			c.String(http.StatusBadRequest, "tail must be an integer in [1,5000]")
			return
		}
		tail = v
	}

	lines, dropped := b.Snapshot(tail)
	c.Header("Cache-Control", "no-store")

	if strings.EqualFold(c.Query("format"), "text") {
		var sb strings.Builder
		if dropped > 0 {
			fmt.Fprintf(&sb, "[dropped=%d]\n", dropped)
		}
		for _, line := range lines {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(sb.String()))
		return
	}

	c.IndentedJSON(http.StatusOK, LogsResponse{
		NowUTC:  time.Now().UTC().Format(time.RFC3339Nano),
		Dropped: dropped,
		Lines:   lines,
	})
}
