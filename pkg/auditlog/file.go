package auditlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// FileSink appends each stream to <dir>/<name>.log.
type FileSink struct {
	dir    string
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ ReadableSink = (*FileSink)(nil)

// NewFileSink creates a sink rooted at dir, creating the directory if needed.
func NewFileSink(dir string, logger *zerolog.Logger) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("log directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "auditlog").Str("sink", "file").Logger()
	}

	return &FileSink{
		dir:    dir,
		logger: l,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file" }

// Dir returns the directory streams are written to.
func (s *FileSink) Dir() string { return s.dir }

// Path returns the file a stream is written to.
func (s *FileSink) Path(name string) string {
	return filepath.Join(s.dir, FileName(name)+".log")
}

// Append writes one line to the stream, creating the file if absent. Appends
// to the same stream are serialized.
func (s *FileSink) Append(_ context.Context, name, line string) error {
	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	path := s.Path(name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	if _, err := f.WriteString(singleLine(line) + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write log file %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close log file %s: %w", path, err)
	}

	s.logger.Debug().Str("resource", name).Str("path", path).Msg("Appended log line")
	return nil
}

// Streams implements Reader. Files whose names FileName could not have
// produced are skipped.
func (s *FileSink) Streams(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read log directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		name, err := ParseFileName(strings.TrimSuffix(entry.Name(), ".log"))
		if err != nil {
			s.logger.Warn().Err(err).Msg("Skipping log file")
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read implements Reader.
func (s *FileSink) Read(_ context.Context, name string) ([]string, error) {
	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Open(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, streamNotFound(name)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return lines, nil
}

func (s *FileSink) lockFor(name string) *sync.Mutex {
	key := FileName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// FileName maps a resource name to a file name inside the log directory.
// The mapping is reversible: '%', path separators and NUL are percent-encoded,
// as is a leading dot, so distinct names never share a file.
func FileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '%' || c == '/' || c == '\\' || c == 0:
			fmt.Fprintf(&b, "%%%02X", c)
		case c == '.' && i == 0:
			b.WriteString("%2E")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ParseFileName reverses FileName.
func ParseFileName(file string) (string, error) {
	name, err := url.PathUnescape(file)
	if err != nil {
		return "", fmt.Errorf("invalid log file name %q: %w", file, err)
	}
	return name, nil
}
