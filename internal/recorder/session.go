package recorder

import (
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"voicecoach/internal/domain"
	"voicecoach/internal/ports"
)

// Session is one capture from Start to finalised WAV. Done is closed once
// the recording (or its error) is available.
type Session struct {
	ID string

	audio  ports.AudioSession
	cancel func()

	chunksMu sync.Mutex
	chunks   [][]byte
	readErr  error
	pumpDone chan struct{}

	done   chan struct{}
	result domain.Recording
	err    error
}

func newSession(id string, audio ports.AudioSession, cancel func()) *Session {
	return &Session{
		ID:       id,
		audio:    audio,
		cancel:   cancel,
		pumpDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Done is closed when finalisation completes.
func (s *Session) Done() <-chan struct{} { return s.done }

// Result returns the finalised recording. Only meaningful after Done.
func (s *Session) Result() (domain.Recording, error) {
	select {
	case <-s.done:
		return s.result, s.err
	default:
		return domain.Recording{}, errors.New("recording is not finalised")
	}
}

// ChunkCount reports how many non-empty chunks were captured so far.
func (s *Session) ChunkCount() int {
	s.chunksMu.Lock()
	defer s.chunksMu.Unlock()
	return len(s.chunks)
}

// ReadErr is the device error that ended the pump, if any.
func (s *Session) ReadErr() error {
	s.chunksMu.Lock()
	defer s.chunksMu.Unlock()
	return s.readErr
}

func (s *Session) snapshot() [][]byte {
	s.chunksMu.Lock()
	defer s.chunksMu.Unlock()
	out := make([][]byte, len(s.chunks))
	copy(out, s.chunks)
	return out
}

func (s *Session) finish(rec domain.Recording, err error) {
	s.result = rec
	s.err = err
	close(s.done)
}

// pump appends every non-empty read, in arrival order, until the device
// reports EOF or an error.
func (s *Session) pump(chunkSize int, log zerolog.Logger) {
	defer close(s.pumpDone)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := s.audio.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			s.chunksMu.Lock()
			s.chunks = append(s.chunks, chunk)
			s.chunksMu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.chunksMu.Lock()
				s.readErr = err
				s.chunksMu.Unlock()
				log.Warn().Err(err).Str("session", s.ID).Msg("audio capture read failed")
			}
			return
		}
	}
}
