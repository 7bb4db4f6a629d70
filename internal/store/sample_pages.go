// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/greenpower-cms/internal/model"
)

// SamplePages are the marketing pages installed by the seeder.
var SamplePages = []PageParams{
	{
		Slug:            "home",
		Title:           "Home",
		Content:         `{"hero":{"heading":"Clean energy for Kurdistan and Iraq","subheading":"Solar, wind and storage projects built to last"},"sections":["services","projects","contact"]}`,
		MetaTitle:       "Renewable Energy Solutions",
		MetaDescription: "Solar, wind and battery storage projects across the region.",
		MetaKeywords:    "solar,wind,renewable energy,iraq",
		Status:          model.PageStatusPublished,
	},
	{
		Slug:            "about",
		Title:           "About Us",
		Content:         `{"heading":"About us","body":"An engineering team delivering renewable installations since 2012.","stats":{"projects":120,"megawatts":85}}`,
		MetaTitle:       "About Us",
		MetaDescription: "Who we are and how we deliver renewable energy projects.",
		MetaKeywords:    "about,team,engineering",
		Status:          model.PageStatusPublished,
	},
	{
		Slug:            "services",
		Title:           "Services",
		Content:         `{"heading":"Services","items":[{"name":"Solar farms"},{"name":"Rooftop solar"},{"name":"Wind turbines"},{"name":"Battery storage"},{"name":"Maintenance"}]}`,
		MetaTitle:       "Our Services",
		MetaDescription: "Design, installation and maintenance of renewable energy systems.",
		MetaKeywords:    "services,installation,maintenance",
		Status:          model.PageStatusPublished,
	},
	{
		Slug:            "projects",
		Title:           "Projects",
		Content:         `{"heading":"Projects","source":"projects","filter":{"status":["active","completed"]}}`,
		MetaTitle:       "Our Projects",
		MetaDescription: "Completed and ongoing renewable energy projects.",
		MetaKeywords:    "projects,portfolio",
		Status:          model.PageStatusPublished,
	},
	{
		Slug:            "contact",
		Title:           "Contact",
		Content:         `{"heading":"Contact","email":"info@example.com","phone":"+964 750 000 0000","address":"Erbil, Kurdistan Region"}`,
		MetaTitle:       "Contact Us",
		MetaDescription: "Get in touch for a renewable energy consultation.",
		MetaKeywords:    "contact,consultation",
		Status:          model.PageStatusPublished,
	},
	{
		Slug:            "careers",
		Title:           "Careers",
		Content:         `{"heading":"Careers","openings":[]}`,
		MetaTitle:       "Careers",
		MetaDescription: "Join our engineering and field teams.",
		MetaKeywords:    "careers,jobs",
		Status:          model.PageStatusDraft,
	},
}

// SeedResult summarizes a SeedSamplePages run.
type SeedResult struct {
	Inserted []string
	Skipped  []string
}

// SeedSamplePages inserts SamplePages, leaving pages whose slug already exists untouched.
func SeedSamplePages(ctx context.Context, db *sql.DB) (SeedResult, error) {
	var result SeedResult
	err := RunInTx(ctx, db, func(q *Queries) error {
		now := time.Now().UTC()
		for _, p := range SamplePages {
			if p.Status == model.PageStatusPublished {
				p.PublishedAt = &now
			}
			inserted, err := q.InsertPageIfAbsent(ctx, p, now)
			if err != nil {
				return fmt.Errorf("inserting page %q: %w", p.Slug, err)
			}
			if inserted {
				result.Inserted = append(result.Inserted, p.Slug)
			} else {
				result.Skipped = append(result.Skipped, p.Slug)
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return result, nil
}
