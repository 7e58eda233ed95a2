// Package metadata builds upload titles and descriptions for rendered clips.
package metadata

import (
	"strconv"
	"strings"
	"time"

	"github.com/okian/viralclip/internal/domain/model"
)

// Upload limits and defaults.
const (
	MaxTitleRunes       = 100
	MaxDescriptionRunes = 5000
	DefaultCategoryID   = "20"
	DefaultVisibility   = "public"
)

// DefaultTags are attached to every upload unless overridden.
var DefaultTags = []string{"shorts", "gaming", "viral"}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithCategoryID sets the platform category.
func WithCategoryID(id string) Option {
	return func(b *Builder) {
		if id != "" {
			b.categoryID = id
		}
	}
}

// WithVisibility sets the visibility used for immediate uploads.
func WithVisibility(v string) Option {
	return func(b *Builder) {
		if v != "" {
			b.visibility = v
		}
	}
}

// WithTags replaces the default tags.
func WithTags(tags []string) Option {
	return func(b *Builder) {
		cleaned := make([]string, 0, len(tags))
		for _, t := range tags {
			t = strings.TrimPrefix(strings.TrimSpace(t), "#")
			if t != "" {
				cleaned = append(cleaned, t)
			}
		}
		if len(cleaned) > 0 {
			b.tags = cleaned
		}
	}
}

// Builder produces VideoMetadata for a candidate.
type Builder struct {
	categoryID string
	visibility string
	tags       []string
}

// NewBuilder creates a builder with configuration options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		categoryID: DefaultCategoryID,
		visibility: DefaultVisibility,
		tags:       append([]string(nil), DefaultTags...),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns upload metadata for c. subscriberCount < 0 means unknown.
// A zero publishAt means publish immediately.
func (b *Builder) Build(c model.Candidate, subscriberCount int64, publishAt time.Time) model.VideoMetadata {
	creator := strings.TrimSpace(c.ChannelTitle)
	if creator == "" {
		creator = "This creator"
	}

	return model.VideoMetadata{
		Title:       truncate("🔥 "+creator+" GOES VIRAL! #shorts", MaxTitleRunes),
		Description: truncate(b.description(creator, c.VideoID, subscriberCount), MaxDescriptionRunes),
		Tags:        append([]string(nil), b.tags...),
		CategoryID:  b.categoryID,
		Visibility:  b.visibility,
		PublishAt:   publishAt,
	}
}

func (b *Builder) description(creator, videoID string, subs int64) string {
	var sb strings.Builder
	sb.WriteString("🚨 CREDIT: ")
	sb.WriteString(creator)
	if subs >= 0 {
		sb.WriteString(" (")
		sb.WriteString(strconv.FormatInt(subs, 10))
		sb.WriteString(" subs)")
	}
	sb.WriteString("\n📺 Original: https://youtu.be/")
	sb.WriteString(videoID)
	sb.WriteString("\n\n💬 COMMENT your reaction!\n👍 LIKE for more!\n🔔 SUBSCRIBE!\n\n")
	for i, t := range b.tags {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('#')
		sb.WriteString(t)
	}
	return sb.String()
}

// Build is a shorthand for NewBuilder(opts...).Build.
func Build(c model.Candidate, subscriberCount int64, publishAt time.Time, opts ...Option) model.VideoMetadata {
	return NewBuilder(opts...).Build(c, subscriberCount, publishAt)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
