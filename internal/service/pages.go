// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/greenpower-cms/internal/cache"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/store"
)

// Page cache keys. Every key starts with PagesCachePrefix.
const (
	PagesCachePrefix = "pages:"
	pagesListKey     = PagesCachePrefix + "list"
	pageSlugKey      = PagesCachePrefix + "slug:"
)

// PageView is a page with its content as raw JSON.
type PageView struct {
	ID              int64           `json:"id"`
	Slug            string          `json:"slug"`
	Title           string          `json:"title"`
	Content         json.RawMessage `json:"content"`
	MetaTitle       string          `json:"meta_title"`
	MetaDescription string          `json:"meta_description"`
	MetaKeywords    string          `json:"meta_keywords"`
	Status          string          `json:"status"`
	PublishedAt     *time.Time      `json:"published_at"`
	CreatedBy       *int64          `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewPageView converts a stored page. Invalid stored content reads as {}.
func NewPageView(p store.Page) PageView {
	content := json.RawMessage(p.Content)
	if !json.Valid(content) {
		content = json.RawMessage("{}")
	}
	return PageView{
		ID:              p.ID,
		Slug:            p.Slug,
		Title:           p.Title,
		Content:         content,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		MetaKeywords:    p.MetaKeywords,
		Status:          p.Status,
		PublishedAt:     p.PublishedAt,
		CreatedBy:       p.CreatedBy,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// PageService reads published pages through the cache.
type PageService struct {
	queries *store.Queries
	cache   cache.Cache
	ttl     time.Duration
}

// NewPageService creates a page service. A nil cache disables caching.
func NewPageService(db *sql.DB, c cache.Cache, ttl time.Duration) *PageService {
	return &PageService{queries: store.New(db), cache: c, ttl: ttl}
}

// ListPublished returns every published page ordered by title.
func (s *PageService) ListPublished(ctx context.Context) ([]PageView, error) {
	load := func(ctx context.Context) ([]PageView, error) {
		pages, err := s.queries.ListPages(ctx, model.PageStatusPublished)
		if err != nil {
			return nil, err
		}
		views := make([]PageView, 0, len(pages))
		for _, p := range pages {
			views = append(views, NewPageView(p))
		}
		return views, nil
	}
	if s.cache == nil {
		return load(ctx)
	}
	return cache.Remember(ctx, s.cache, pagesListKey, s.ttl, load)
}

// GetPublished returns the published page with slug, or sql.ErrNoRows.
func (s *PageService) GetPublished(ctx context.Context, slug string) (PageView, error) {
	load := func(ctx context.Context) (PageView, error) {
		p, err := s.queries.GetPageBySlug(ctx, slug)
		if err != nil {
			return PageView{}, err
		}
		if p.Status != model.PageStatusPublished {
			return PageView{}, sql.ErrNoRows
		}
		return NewPageView(p), nil
	}
	if s.cache == nil {
		return load(ctx)
	}
	return cache.Remember(ctx, s.cache, pageSlugKey+slug, s.ttl, load)
}

// Invalidate drops every cached page response.
func (s *PageService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, PagesCachePrefix); err != nil {
		slog.Warn("failed to invalidate page cache", "error", err)
	}
}
