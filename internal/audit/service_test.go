package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTimelineRepo struct {
	rows []TimelineRow
	last Window
}

func (s *stubTimelineRepo) Timeline(ctx context.Context, w Window) ([]TimelineRow, error) {
	s.last = w
	if w.Offset >= len(s.rows) {
		return nil, nil
	}
	end := w.Offset + w.Limit
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[w.Offset:end], nil
}

func row(at, actor, action, entity, id string) TimelineRow {
	ts, _ := time.Parse(time.RFC3339, at)
	return TimelineRow{At: ts, Actor: actor, Action: action, Entity: entity, EntityID: id}
}

func sampleRows() []TimelineRow {
	return []TimelineRow{
		row("2026-03-10T10:00:00Z", "admin", "delete", "sale", "s-1"),
		row("2026-03-09T09:00:00Z", "kasir", "update", "sale", "s-1"),
		row("2026-03-08T08:00:00Z", "kasir", "create", "sale", "s-1"),
	}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: sampleRows()}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Zero(t, result.Paging.PrevPage)
	assert.Equal(t, 3, repo.last.Limit)
	assert.Equal(t, 0, repo.last.Offset)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.False(t, result.Paging.HasNext)
	assert.Equal(t, 1, result.Paging.PrevPage)
	assert.Equal(t, 2, repo.last.Offset)
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize+1, repo.last.Limit)
	assert.Equal(t, 1, result.Paging.Page)
	assert.NotNil(t, result.Rows)

	_, err = svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize+1, repo.last.Limit)
}

func TestServiceExport(t *testing.T) {
	repo := &stubTimelineRepo{rows: sampleRows()}
	svc := NewService(repo)

	rows, err := svc.Export(context.Background(), TimelineFilters{Entity: "sale"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, MaxExportRows, repo.last.Limit)
	assert.Equal(t, "sale", repo.last.Filters.Entity)
}

func TestServiceWithoutRepository(t *testing.T) {
	_, err := NewService(nil).Timeline(context.Background(), TimelineFilters{})
	require.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	rows := sampleRows()
	rows[0].Meta = map[string]any{"invoice_number": "INV-1"}

	out, err := WriteCSV(rows)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"2026-03-10T10:00:00Z", "admin", "delete", "sale", "s-1", `{"invoice_number":"INV-1"}`}, records[1])
	assert.Equal(t, "", records[3][5])
}
