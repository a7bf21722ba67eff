package progress

import (
	"regexp"
	"strconv"
)

// The separation engine reports progress through a tqdm-style meter on
// stderr, carriage-return delimited, e.g. " 45%|████      | 54/120".
// Chunk boundaries are arbitrary so the extractor accumulates raw text and
// always trusts the last percentage visible in its buffer.
var percentPattern = regexp.MustCompile(`(\d+)%\|`)

const (
	maxBufferLen  = 1000
	keepBufferLen = 500
)

func NewExtractor() *Extractor {
	return &Extractor{lastReported: -1}
}

type Extractor struct {
	buffer       string
	lastReported int
}

// Consume appends one raw chunk and returns the newest percentage if it
// differs from the previously returned one. Buffer truncation can drop old
// meter text; only the latest value matters.
func (e *Extractor) Consume(chunk string) (int, bool) {
	e.buffer += chunk
	defer e.truncate()

	matches := percentPattern.FindAllStringSubmatch(e.buffer, -1)
	if len(matches) == 0 {
		return 0, false
	}

	percentage, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0, false
	}

	if percentage == e.lastReported {
		return 0, false
	}

	e.lastReported = percentage
	return percentage, true
}

func (e *Extractor) truncate() {
	if len(e.buffer) > maxBufferLen {
		e.buffer = e.buffer[len(e.buffer)-keepBufferLen:]
	}
}
