// Package sse reads and writes Server-Sent Event streams.
package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Event is one parsed event. Multiple data lines are joined with "\n".
type Event struct {
	Type string
	ID   string
	Data string
}

// Scanner reads events from a stream.
//
//	sc := sse.NewScanner(body)
//	for sc.Next() {
//		handle(sc.Event())
//	}
//	err := sc.Err()
type Scanner struct {
	r     *bufio.Reader
	event Event
	err   error
}

// NewScanner wraps r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next event carrying data. It returns false at the end
// of the stream or on error.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	var (
		ev      Event
		data    []string
		hasData bool
	)
	for {
		line, err := s.r.ReadString('\n')
		if err != nil && line == "" {
			s.err = err
			if errors.Is(err, io.EOF) && hasData {
				ev.Data = strings.Join(data, "\n")
				s.event = ev
				return true
			}
			return false
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if hasData {
				ev.Data = strings.Join(data, "\n")
				s.event = ev
				return true
			}
			ev = Event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			ev.Type = value
		case "id":
			ev.ID = value
		}
	}
}

// Event returns the event read by the last successful Next.
func (s *Scanner) Event() Event {
	return s.event
}

// Err returns the error that stopped the scanner; a clean end of stream is nil.
func (s *Scanner) Err() error {
	if errors.Is(s.err, io.EOF) {
		return nil
	}
	return s.err
}
