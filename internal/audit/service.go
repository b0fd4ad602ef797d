package audit

import (
	"context"
	"fmt"
	"strings"
)

// Repository reads recorded audit entries.
type Repository interface {
	AuditTimeline(ctx context.Context, window Window) ([]TimelineRow, error)
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

// Service coordinates timeline reads.
type Service struct {
	repo Repository
}

// NewService builds the audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of audit entries. One extra row is requested to
// detect whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	window := windowFor(filters)
	window.Offset = (page - 1) * pageSize
	window.Limit = pageSize + 1

	rows, err := s.repo.AuditTimeline(ctx, window)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every matching entry without paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.AuditTimeline(ctx, windowFor(filters))
}

func windowFor(filters TimelineFilters) Window {
	return Window{
		From:   filters.From,
		To:     filters.To,
		Actor:  strings.TrimSpace(filters.Actor),
		Entity: strings.TrimSpace(filters.Entity),
		Action: strings.TrimSpace(filters.Action),
	}
}
