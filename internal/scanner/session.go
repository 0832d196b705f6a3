package scanner

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/counterjob/backend/internal/logger"
	"go.uber.org/zap"
)

// Session is one camera scanning session. Decoded codes are delivered to
// OnScan unless they fall inside the debounce pause. Once closed, frames are
// ignored.
type Session struct {
	decoder  FrameDecoder
	debounce Debouncer
	key      string

	OnScan  func(Result)
	OnError func(error)

	mu     sync.Mutex
	closed bool
}

func NewSession(decoder FrameDecoder, debounce Debouncer, key string) *Session {
	return &Session{decoder: decoder, debounce: debounce, key: key}
}

// Feed decodes one encoded frame. It reports whether a code was delivered.
func (s *Session) Feed(ctx context.Context, frame io.Reader) bool {
	if s.isClosed() {
		return false
	}
	res, err := s.decoder.Decode(frame)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.reportError(err)
		}
		return false
	}
	return s.deliver(ctx, *res)
}

// FeedText delivers a code that was decoded elsewhere, such as by a
// handheld scanner or the client.
func (s *Session) FeedText(ctx context.Context, text string) bool {
	if s.isClosed() {
		return false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	return s.deliver(ctx, Result{Text: text, Format: "TEXT"})
}

// Close stops the session. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) deliver(ctx context.Context, res Result) bool {
	if s.debounce != nil {
		ok, err := s.debounce.Allow(ctx, s.key)
		if err != nil {
			// fail open
			logger.Warn(ctx, "scan debounce failed", zap.Error(err), zap.String("key", s.key))
		} else if !ok {
			return false
		}
	}
	if s.OnScan != nil {
		s.OnScan(res)
	}
	return true
}

func (s *Session) reportError(err error) {
	if s.OnError != nil {
		s.OnError(err)
		return
	}
	zap.L().Debug("scan decode error", zap.Error(err))
}
