package repository

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

const (
	colVideoID     = "video_id"
	colExternalID  = "external_id"
	colPublishedAt = "published_at"
	colScheduledAt = "scheduled_at"
)

// queries builds the ledger statements for one SQL dialect.
type queries struct {
	table string
	sb    sq.StatementBuilderType
}

func newQueries(table string, ph sq.PlaceholderFormat) queries {
	return queries{table: table, sb: sq.StatementBuilder.PlaceholderFormat(ph)}
}

func (q queries) schema(timeType string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s TEXT PRIMARY KEY,
		%s TEXT NOT NULL,
		%s %s NOT NULL,
		%s %s
	)`, q.table, colVideoID, colExternalID, colPublishedAt, timeType, colScheduledAt, timeType)
}

func (q queries) seen(videoID string) (string, []any, error) {
	return q.sb.Select("1").From(q.table).Where(sq.Eq{colVideoID: videoID}).Limit(1).ToSql()
}

func (q queries) insert(videoID, externalID string, publishedAt, scheduledAt any) (string, []any, error) {
	return q.sb.Insert(q.table).
		Columns(colVideoID, colExternalID, colPublishedAt, colScheduledAt).
		Values(videoID, externalID, publishedAt, scheduledAt).
		Suffix("ON CONFLICT (" + colVideoID + ") DO NOTHING").
		ToSql()
}

func (q queries) get(videoID string) (string, []any, error) {
	return q.sb.Select(colVideoID, colExternalID, colPublishedAt, colScheduledAt).
		From(q.table).
		Where(sq.Eq{colVideoID: videoID}).
		ToSql()
}

func (q queries) count() (string, []any, error) {
	return q.sb.Select("COUNT(*)").From(q.table).ToSql()
}
