// Package matrix adapts homeserver spam-checker callouts onto the
// detection engine: it decodes events, collects candidate texts, and
// resolves media references through the fetch collaborator.
package matrix

import (
	"context"
	"errors"
	"io"

	"github.com/haukened/badlist/internal/badlist/common/log"
	"github.com/haukened/badlist/internal/badlist/domain"
	"github.com/haukened/badlist/internal/badlist/gateways/media"
)

// ContentChecker is the engine surface the screener drives.
type ContentChecker interface {
	CheckMessage(ctx context.Context, texts []string) (bool, error)
	CheckUpload(ctx context.Context, content io.Reader) bool
}

// MediaFetcher retrieves uploaded bytes by mxc reference.
type MediaFetcher interface {
	Fetch(ctx context.Context, mxc domain.MXC) (io.ReadCloser, error)
}

// Screener maps whole events onto the two checking pipelines.
type Screener struct {
	checker ContentChecker
	fetcher MediaFetcher
	logger  log.Logger
}

func NewScreener(checker ContentChecker, fetcher MediaFetcher, logger log.Logger) *Screener {
	return &Screener{checker: checker, fetcher: fetcher, logger: logger}
}

// ScreenEvent decides whether an event should be rejected. Non-message
// events and unknown msgtypes pass untouched. The error mirrors
// CheckMessage's bootstrap-only error; every other failure is allow.
func (s *Screener) ScreenEvent(ctx context.Context, ev domain.Event) (domain.CheckResult, error) {
	if ev.Type != domain.EventTypeMessage {
		return domain.CheckResult{}, nil
	}
	switch {
	case ev.Content.MsgType == domain.MsgTypeText:
		bad, err := s.checker.CheckMessage(ctx, CandidateTexts(ev.Content))
		if err != nil {
			return domain.CheckResult{}, err
		}
		return domain.CheckResult{Rejected: bad}, nil
	case ev.Content.IsMedia():
		return s.ScreenMedia(ctx, ev.Content.URL), nil
	}
	return domain.CheckResult{}, nil
}

// ScreenMedia fetches the referenced content and runs the hash pipeline.
// An unparseable reference, a rate-limited media host, or any other
// fetch failure allows the upload; moderation never invents rejections
// out of infrastructure trouble.
func (s *Screener) ScreenMedia(ctx context.Context, mxcURI string) domain.CheckResult {
	mxc, err := domain.ParseMXC(mxcURI)
	if err != nil {
		s.logger.Debug(map[string]any{"error": err.Error()}, "unparseable content URI, skipping")
		return domain.CheckResult{}
	}
	content, err := s.fetcher.Fetch(ctx, mxc)
	if err != nil {
		if errors.Is(err, media.ErrRateLimited) {
			s.logger.Warn(nil, "media host rate-limited us, assuming it's not spam")
		} else {
			s.logger.Warn(map[string]any{"error": err.Error()}, "could not download media, assuming it's not spam")
		}
		return domain.CheckResult{}
	}
	defer content.Close()
	return domain.CheckResult{Rejected: s.checker.CheckUpload(ctx, content)}
}
