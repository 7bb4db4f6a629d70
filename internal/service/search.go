// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"html"
	"regexp"
	"strings"
	"time"
)

var (
	queryCharsRe = regexp.MustCompile(`[^\p{L}\p{N}\s_-]`)
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
)

// SearchService provides full-text search over published pages using SQLite FTS5.
// The pages_fts index is maintained by triggers on the pages table.
type SearchService struct {
	db *sql.DB
}

// SearchResult represents a single search result with match highlight.
type SearchResult struct {
	ID          int64      `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt"`
	Highlight   string     `json:"highlight"`
	PublishedAt *time.Time `json:"published_at"`
	Rank        float64    `json:"rank"`
}

// SearchParams holds search parameters.
type SearchParams struct {
	Query  string
	Limit  int
	Offset int
}

// NewSearchService creates a new search service.
func NewSearchService(db *sql.DB) *SearchService {
	return &SearchService{db: db}
}

// escapeQuery turns free text into an FTS5 prefix query, dropping FTS5
// operators and punctuation.
func (s *SearchService) escapeQuery(query string) string {
	query = queryCharsRe.ReplaceAllString(strings.TrimSpace(query), " ")
	words := strings.Fields(query)
	if len(words) == 0 {
		return ""
	}

	terms := make([]string, 0, len(words))
	for _, word := range words {
		terms = append(terms, `"`+word+`"*`)
	}
	return strings.Join(terms, " OR ")
}

// SearchPublishedPages searches published pages ranked by bm25.
// FTS5 MATCH, bm25() and snippet() have no equivalent in the generated query layer.
func (s *SearchService) SearchPublishedPages(ctx context.Context, params SearchParams) ([]SearchResult, int64, error) {
	match := s.escapeQuery(params.Query)
	if match == "" {
		return []SearchResult{}, 0, nil
	}

	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pages p
		INNER JOIN pages_fts ON pages_fts.rowid = p.id
		WHERE pages_fts MATCH ? AND p.status = 'published'`, match).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []SearchResult{}, 0, nil
	}

	//goland:noinspection SqlResolve,SqlSignature
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			p.id,
			p.slug,
			p.title,
			p.published_at,
			pages_fts.content,
			bm25(pages_fts) AS rank,
			snippet(pages_fts, 1, '<mark>', '</mark>', '...', 30) AS highlight
		FROM pages p
		INNER JOIN pages_fts ON pages_fts.rowid = p.id
		WHERE pages_fts MATCH ? AND p.status = 'published'
		ORDER BY rank
		LIMIT ? OFFSET ?`, match, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	results := make([]SearchResult, 0, params.Limit)
	for rows.Next() {
		var (
			r           SearchResult
			content     string
			publishedAt sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Slug, &r.Title, &publishedAt, &content, &r.Rank, &r.Highlight); err != nil {
			return nil, 0, err
		}
		if publishedAt.Valid {
			r.PublishedAt = &publishedAt.Time
		}
		r.Highlight = sanitizeHighlight(r.Highlight)
		r.Excerpt = s.generateExcerpt(content, params.Query, 200)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

// generateExcerpt takes up to maxLen bytes of body around the first query term.
func (s *SearchService) generateExcerpt(body, query string, maxLen int) string {
	body = stripHTMLTags(body)
	if body == "" {
		return ""
	}

	lowerBody := strings.ToLower(body)
	firstMatch := -1
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if idx := strings.Index(lowerBody, word); idx != -1 && (firstMatch == -1 || idx < firstMatch) {
			firstMatch = idx
		}
	}

	if firstMatch == -1 {
		if len(body) > maxLen {
			return truncateRunes(body, maxLen) + "..."
		}
		return body
	}

	start := max(firstMatch-maxLen/3, 0)
	for start > 0 && !isRuneStart(body[start]) {
		start--
	}
	excerpt := truncateRunes(body[start:], maxLen)
	end := start + len(excerpt)

	if start > 0 {
		excerpt = "..." + excerpt
	}
	if end < len(body) {
		excerpt += "..."
	}
	return excerpt
}

// truncateRunes cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// stripHTMLTags removes HTML tags, decodes entities and normalizes whitespace.
func stripHTMLTags(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// sanitizeHighlight strips all HTML from FTS snippet output except <mark> tags.
func sanitizeHighlight(highlight string) string {
	if highlight == "" {
		return ""
	}

	highlight = strings.ReplaceAll(highlight, "<mark>", "\x00MARK_OPEN\x00")
	highlight = strings.ReplaceAll(highlight, "</mark>", "\x00MARK_CLOSE\x00")
	highlight = stripHTMLTags(highlight)
	highlight = html.EscapeString(highlight)
	highlight = strings.ReplaceAll(highlight, "\x00MARK_OPEN\x00", "<mark>")
	highlight = strings.ReplaceAll(highlight, "\x00MARK_CLOSE\x00", "</mark>")

	return strings.TrimSpace(highlight)
}

// RebuildIndex rebuilds the FTS index from the pages table.
func (s *SearchService) RebuildIndex(ctx context.Context) error {
	//goland:noinspection SqlResolve
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pages_fts`); err != nil {
		return err
	}

	//goland:noinspection SqlResolve
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages_fts(rowid, title, content, meta_title, meta_description, meta_keywords)
		SELECT
			id,
			title,
			CASE WHEN json_valid(content)
				THEN (SELECT coalesce(group_concat(value, ' '), '') FROM json_tree(pages.content) WHERE type = 'text')
				ELSE '' END,
			meta_title,
			meta_description,
			meta_keywords
		FROM pages
		WHERE status = 'published'`)
	return err
}
