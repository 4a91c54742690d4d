// Package capture runs the segmented audio-capture loop. A Session owns a
// microphone stream while recording, seals the accumulated audio every
// interval, and hands each sealed segment to a transcriber off the capture
// path. Recognized speech is speaker-tagged and appended to the chat log.
//
// Segments are independent: a failed or empty transcription never stops the
// session or affects later segments. The next segment's buffer starts
// accumulating the moment the previous one is sealed, so speech spoken
// during transcription latency is not lost.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ScrewVolt/halov2/pkg/chatlog"
	"github.com/ScrewVolt/halov2/pkg/scribe"
	"github.com/ScrewVolt/halov2/pkg/storage"
)

// DefaultInterval is the segment length used when none is configured.
const DefaultInterval = 5 * time.Second

// Sentinel errors.
var (
	// ErrBusy is returned by Start while a session is already recording.
	// The second start is rejected, not queued.
	ErrBusy = errors.New("capture: session already recording")

	// ErrUnavailable wraps audio stream acquisition failures (device
	// denied or unsupported).
	ErrUnavailable = errors.New("capture: audio stream unavailable")
)

// State is the session lifecycle state.
type State int

// Session states.
const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	}
	return "unknown"
}

// Appender receives tagged transcription results. *chatlog.Log satisfies it.
type Appender interface {
	AppendTagged(ctx context.Context, fragment string) (chatlog.Entry, error)
}

// Config assembles a Session's collaborators.
type Config struct {
	// Open acquires the audio input stream. Required. The session closes
	// the stream on every exit from the Recording state.
	Open func(ctx context.Context) (io.ReadCloser, error)

	// Transcriber converts sealed segments to text. Required.
	Transcriber scribe.Transcriber

	// Log receives tagged transcripts. Required.
	Log Appender

	// Interval is the segment length. Zero selects DefaultInterval.
	Interval time.Duration

	// Archive, when set, receives each sealed segment's raw bytes before
	// transcription, under "{ArchivePrefix}/{ts_ns}.raw".
	Archive       storage.FileStore
	ArchivePrefix string

	// Notify, when set, is called with each per-segment failure after it
	// has been logged. Failures never stop the session.
	Notify func(error)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Session is the capture state machine. At most one stream is active per
// session; its lifetime is bounded by the Recording state.
type Session struct {
	cfg Config

	mu             sync.Mutex
	state          State
	shouldContinue bool
	src            io.ReadCloser
	seg            *bytes.Buffer
	ctx            context.Context
	tickerStop     chan struct{}

	wg sync.WaitGroup // in-flight segment workers
}

// New validates cfg and creates an idle Session.
func New(cfg Config) (*Session, error) {
	if cfg.Open == nil {
		return nil, errors.New("capture: Config.Open is required")
	}
	if cfg.Transcriber == nil {
		return nil, errors.New("capture: Config.Transcriber is required")
	}
	if cfg.Log == nil {
		return nil, errors.New("capture: Config.Log is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{cfg: cfg}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start acquires the audio stream and begins the segment loop. Valid only
// from Idle: a second Start returns ErrBusy. If stream acquisition fails,
// the error wraps ErrUnavailable and the session remains Idle.
//
// ctx bounds the session's transcription requests; cancelling it abandons
// them, but Stop alone does not.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Recording {
		return ErrBusy
	}

	src, err := s.cfg.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.state = Recording
	s.shouldContinue = true
	s.src = src
	s.seg = &bytes.Buffer{} // discard any stale buffer from a prior run
	s.ctx = ctx
	s.tickerStop = make(chan struct{})

	go s.readLoop(src)
	go s.tickLoop(s.tickerStop)

	s.cfg.Logger.Info("capture started", "interval", s.cfg.Interval)
	return nil
}

// Stop finalizes the current segment, releases the stream, and returns the
// session to Idle. The continuation flag is cleared under the same lock the
// tick handler reads it under, so a stop during an in-flight transcription
// cannot race a restart. Stop from Idle is a no-op. Already-dispatched
// transcriptions are not cancelled; late results still append.
func (s *Session) Stop() {
	s.shutdown(nil, "stop requested")
}

// Wait blocks until all dispatched segment workers have finished. Call it
// after Stop to drain in-flight transcriptions.
func (s *Session) Wait() {
	s.wg.Wait()
}

// shutdown is the single exit path from Recording, shared by Stop, stream
// EOF, and unrecoverable read errors. A non-nil from restricts the shutdown
// to the run that owns that stream, so a stale read loop from an earlier run
// cannot tear down a newly started session.
func (s *Session) shutdown(from io.ReadCloser, reason string) {
	s.mu.Lock()
	if s.state != Recording || (from != nil && s.src != from) {
		s.mu.Unlock()
		return
	}
	s.state = Idle
	s.shouldContinue = false
	close(s.tickerStop)
	sealed := s.seg.Bytes()
	s.seg = &bytes.Buffer{}
	src := s.src
	s.src = nil
	ctx := s.ctx
	s.mu.Unlock()

	if err := src.Close(); err != nil {
		s.cfg.Logger.Warn("capture: closing audio stream", "error", err)
	}
	// One last transcription for whatever was buffered.
	s.dispatch(ctx, sealed)

	s.cfg.Logger.Info("capture stopped", "reason", reason)
}

// readLoop drains the audio stream into the current segment buffer. A read
// error or EOF ends the session through the shared exit path.
func (s *Session) readLoop(src io.ReadCloser) {
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			s.mu.Lock()
			if s.state == Recording && s.src == src {
				s.seg.Write(buf[:n])
			}
			s.mu.Unlock()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.shutdown(src, "stream ended")
			} else {
				s.mu.Lock()
				current := s.state == Recording && s.src == src
				s.mu.Unlock()
				if current {
					s.cfg.Logger.Error("capture: stream read failed", "error", err)
					s.notify(fmt.Errorf("%w: %v", ErrUnavailable, err))
				}
				s.shutdown(src, "stream error")
			}
			return
		}
	}
}

// tickLoop seals a segment at every interval boundary.
func (s *Session) tickLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.seal() {
				return
			}
		}
	}
}

// seal closes the current segment buffer and opens the next one in a single
// critical section, then dispatches the sealed audio for transcription off
// the capture path. Reports whether the loop should keep running.
func (s *Session) seal() bool {
	s.mu.Lock()
	if !s.shouldContinue {
		s.mu.Unlock()
		return false
	}
	sealed := s.seg.Bytes()
	s.seg = &bytes.Buffer{}
	ctx := s.ctx
	s.mu.Unlock()

	s.dispatch(ctx, sealed)
	return true
}

// dispatch archives and transcribes one sealed segment on its own worker.
// Empty segments are dropped before any network call.
func (s *Session) dispatch(ctx context.Context, sealed []byte) {
	if len(sealed) == 0 {
		return
	}
	ts := time.Now().UnixNano()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.archive(ctx, ts, sealed)

		text, err := s.cfg.Transcriber.Transcribe(ctx, sealed)
		if err != nil {
			s.cfg.Logger.Warn("capture: segment transcription failed", "error", err)
			s.notify(err)
			return
		}
		if strings.TrimSpace(text) == "" {
			// No speech detected: nothing to append, not an error.
			return
		}
		if _, err := s.cfg.Log.AppendTagged(ctx, text); err != nil {
			s.cfg.Logger.Warn("capture: appending transcript", "error", err)
			s.notify(err)
		}
	}()
}

// archive stores the raw segment bytes when an archive is configured.
// Archive failures are surfaced but never block transcription.
func (s *Session) archive(ctx context.Context, ts int64, sealed []byte) {
	if s.cfg.Archive == nil {
		return
	}
	path := s.cfg.ArchivePrefix + "/" + strconv.FormatInt(ts, 10) + ".raw"
	w, err := s.cfg.Archive.Write(ctx, path)
	if err == nil {
		_, err = w.Write(sealed)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		s.cfg.Logger.Warn("capture: archiving segment", "path", path, "error", err)
		s.notify(fmt.Errorf("capture: archive segment: %w", err))
	}
}

func (s *Session) notify(err error) {
	if s.cfg.Notify != nil {
		s.cfg.Notify(err)
	}
}
