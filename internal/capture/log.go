package capture

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Capture format: line-oriented text.
//
// - Blank lines ignored.
// - "# session <uuid>" names the recording session; other '#' lines are comments.
// - Line "START" resets the origin (next record time is relative to 0 again).
// - Data lines are: <t_ns>,<hex>
//   where t_ns is nanoseconds since START and hex is raw receiver bytes
//   exactly as they came off the wire (any framing, any split).

const sessionPrefix = "# session "

// Record is one chunk of received bytes. A nil Data marks a START.
type Record struct {
	At   time.Duration
	Data []byte
}

// IsStart reports whether r is a START marker.
func (r Record) IsStart() bool { return r.Data == nil }

type Reader struct {
	r        io.Reader
	sessions []uuid.UUID
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Sessions returns the session ids seen by ReadAll, in file order.
func (rr *Reader) Sessions() []uuid.UUID { return rr.sessions }

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recs := make([]Record, 0, 1024)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, sessionPrefix) {
			id, err := uuid.Parse(strings.TrimSpace(line[len(sessionPrefix):]))
			if err != nil {
				return nil, fmt.Errorf("capture: line %d: invalid session id: %w", lineNo, err)
			}
			rr.sessions = append(rr.sessions, id)
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{})
			continue
		}

		comma := strings.IndexByte(line, ',')
		if comma < 0 {
			return nil, fmt.Errorf("capture: line %d: missing comma: %q", lineNo, line)
		}
		tsStr := strings.TrimSpace(line[:comma])
		hexStr := strings.TrimSpace(line[comma+1:])
		if tsStr == "" || hexStr == "" {
			return nil, fmt.Errorf("capture: line %d: empty field: %q", lineNo, line)
		}

		tsNs, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("capture: line %d: invalid timestamp %q: %w", lineNo, tsStr, err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("capture: line %d: negative timestamp %d", lineNo, tsNs)
		}

		b, err := hex.DecodeString(strings.ReplaceAll(hexStr, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("capture: line %d: invalid hex: %w", lineNo, err)
		}
		if len(b) == 0 {
			return nil, fmt.Errorf("capture: line %d: empty data", lineNo)
		}

		recs = append(recs, Record{At: time.Duration(tsNs), Data: b})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Bytes concatenates the data of all records, ignoring timing.
func Bytes(recs []Record) []byte {
	n := 0
	for _, r := range recs {
		n += len(r.Data)
	}
	out := make([]byte, 0, n)
	for _, r := range recs {
		out = append(out, r.Data...)
	}
	return out
}
