package youtube

import (
	"context"
	"fmt"
	"os"
	"time"

	yt "google.golang.org/api/youtube/v3"

	"github.com/okian/viralclip/internal/domain/model"
	"github.com/okian/viralclip/pkg/logger"
)

const scheduledPrivacy = "private"

// Publisher uploads rendered clips.
type Publisher struct {
	svc *yt.Service
	log logger.Logger
}

// NewPublisher creates a publisher over an OAuth-authenticated service.
func NewPublisher(svc *yt.Service, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{svc: svc, log: log}
}

// Publish uploads the file at path with md and returns the new video id.
// A non-zero md.PublishAt schedules the video, which requires it to be
// uploaded as private.
func (p *Publisher) Publish(ctx context.Context, path string, md model.VideoMetadata) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the render pipeline
	if err != nil {
		return "", &PublishError{Path: path, Kind: KindTransport, Cause: err}
	}
	defer f.Close()

	status := &yt.VideoStatus{
		PrivacyStatus:           md.Visibility,
		SelfDeclaredMadeForKids: false,
	}
	if !md.PublishAt.IsZero() {
		status.PrivacyStatus = scheduledPrivacy
		status.PublishAt = md.PublishAt.UTC().Format(time.RFC3339)
	}

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       md.Title,
			Description: md.Description,
			Tags:        md.Tags,
			CategoryId:  md.CategoryID,
		},
		Status: status,
	}

	uploaded, err := p.svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		return "", &PublishError{Path: path, Kind: classify(err), Cause: err}
	}
	if uploaded.Id == "" {
		return "", &PublishError{Path: path, Kind: KindTransport, Cause: fmt.Errorf("upload returned no video id")}
	}

	p.log.Info(ctx, "clip uploaded",
		logger.String("external_id", uploaded.Id),
		logger.String("privacy", status.PrivacyStatus),
		logger.String("publish_at", status.PublishAt))
	return uploaded.Id, nil
}
