package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	yt "google.golang.org/api/youtube/v3"

	"github.com/okian/viralclip/internal/domain/model"
)

// Default probe configuration constants.
const (
	DefaultRate         = 2.0
	DefaultBurst        = 4
	DefaultRecentWindow = 48 * time.Hour

	videoIDLength   = 11
	channelIDLength = 24
	liveContent     = "live"
)

var videoParts = []string{"snippet", "statistics", "liveStreamingDetails"}

// ProbeOption applies a configuration option to the Prober.
type ProbeOption func(*Prober)

// WithRateLimit caps API calls per second with the given burst. A
// non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) ProbeOption {
	return func(p *Prober) {
		if perSecond <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRecentUploads makes channel probes fall back to the channel's most
// viewed upload within window when nothing is live.
func WithRecentUploads(window time.Duration) ProbeOption {
	return func(p *Prober) {
		p.includeRecent = true
		if window > 0 {
			p.recentWindow = window
		}
	}
}

// WithClock overrides the time source used for the recent-upload window.
func WithClock(now func() time.Time) ProbeOption {
	return func(p *Prober) {
		if now != nil {
			p.now = now
		}
	}
}

// Prober reads candidates from channels and videos.
type Prober struct {
	svc           *yt.Service
	limiter       *rate.Limiter
	includeRecent bool
	recentWindow  time.Duration
	now           func() time.Time
}

// NewProber creates a prober over svc with configuration options.
func NewProber(svc *yt.Service, opts ...ProbeOption) *Prober {
	p := &Prober{
		svc:          svc,
		limiter:      rate.NewLimiter(rate.Limit(DefaultRate), DefaultBurst),
		recentWindow: DefaultRecentWindow,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsChannelID reports whether id looks like a channel identifier.
func IsChannelID(id string) bool {
	return len(id) == channelIDLength && strings.HasPrefix(id, "UC") && validChars(id)
}

// IsVideoID reports whether id looks like a video identifier.
func IsVideoID(id string) bool {
	return len(id) == videoIDLength && validChars(id)
}

func validChars(id string) bool {
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Probe returns the best current candidate for id. Channels yield their most
// watched live stream (or recent upload when enabled); videos are read
// directly. Returns model.ErrNotFound when there is nothing to offer and
// *ProbeError on any API failure.
func (p *Prober) Probe(ctx context.Context, id string) (model.Candidate, error) {
	var (
		videoID string
		err     error
	)
	switch {
	case IsVideoID(id):
		videoID = id
	case IsChannelID(id):
		videoID, err = p.channelVideo(ctx, id)
	default:
		err = ErrInvalidSource
	}
	if err != nil {
		return model.Candidate{}, p.wrap(id, err)
	}
	if videoID == "" {
		return model.Candidate{}, model.ErrNotFound
	}

	cand, err := p.video(ctx, videoID)
	if err != nil {
		return model.Candidate{}, p.wrap(id, err)
	}
	if cand == nil {
		return model.Candidate{}, model.ErrNotFound
	}
	cand.SourceID = model.SourceID(id)
	return *cand, nil
}

func (p *Prober) wrap(id string, err error) error {
	return &ProbeError{SourceID: id, Kind: classify(err), Cause: err}
}

// channelVideo returns the channel's top live video id, falling back to its
// top recent upload. Empty means nothing qualifies.
func (p *Prober) channelVideo(ctx context.Context, channelID string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := p.svc.Search.List([]string{"id"}).
		ChannelId(channelID).
		EventType("live").
		Type("video").
		Order("viewCount").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if id := firstVideoID(resp); id != "" || !p.includeRecent {
		return id, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err = p.svc.Search.List([]string{"id"}).
		ChannelId(channelID).
		Type("video").
		Order("viewCount").
		PublishedAfter(p.now().Add(-p.recentWindow).UTC().Format(time.RFC3339)).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	return firstVideoID(resp), nil
}

func firstVideoID(resp *yt.SearchListResponse) string {
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			return item.Id.VideoId
		}
	}
	return ""
}

// video reads one video's statistics. Nil means the video does not exist.
func (p *Prober) video(ctx context.Context, videoID string) (*model.Candidate, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := p.svc.Videos.List(videoParts).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	return toCandidate(resp.Items[0])
}

func toCandidate(v *yt.Video) (*model.Candidate, error) {
	c := &model.Candidate{VideoID: v.Id}
	if s := v.Snippet; s != nil {
		c.Title = s.Title
		c.ChannelTitle = s.ChannelTitle
		c.ChannelID = s.ChannelId
		if s.PublishedAt != "" {
			t, err := time.Parse(time.RFC3339, s.PublishedAt)
			if err != nil {
				return nil, fmt.Errorf("video %s published_at: %w", v.Id, err)
			}
			c.PublishedAt = t
		}
		if s.LiveBroadcastContent == liveContent && v.LiveStreamingDetails != nil {
			viewers := int64(v.LiveStreamingDetails.ConcurrentViewers) //nolint:gosec // viewer counts fit in int64
			c.ConcurrentViewers = &viewers
		}
	}
	if st := v.Statistics; st != nil {
		c.ViewCount = int64(st.ViewCount) //nolint:gosec // view counts fit in int64
		c.LikeCount = int64(st.LikeCount) //nolint:gosec // like counts fit in int64
	}
	return c, nil
}

// SubscriberCount returns the channel's public subscriber count, or -1 when
// the channel hides it.
func (p *Prober) SubscriberCount(ctx context.Context, channelID string) (int64, error) {
	if channelID == "" {
		return -1, nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return -1, p.wrap(channelID, err)
	}
	resp, err := p.svc.Channels.List([]string{"statistics"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return -1, p.wrap(channelID, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Statistics == nil {
		return -1, model.ErrNotFound
	}
	st := resp.Items[0].Statistics
	if st.HiddenSubscriberCount {
		return -1, nil
	}
	return int64(st.SubscriberCount), nil //nolint:gosec // subscriber counts fit in int64
}
