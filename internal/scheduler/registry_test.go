// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"errors"
	"testing"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/greenpower-cms/internal/testutil"
)

func TestRegistryAddAndList(t *testing.T) {
	c := cron.New()
	r := NewRegistry(testutil.TestLogger())

	if err := r.Add(c, "b-job", "second", "@hourly", func() {}, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add(c, "a-job", "first", "*/5 * * * *", func() {}, func() error { return nil }); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add(c, "bad", "broken", "not cron", func() {}, nil); err == nil {
		t.Error("Add with invalid schedule should fail")
	}

	jobs := r.List()
	if len(jobs) != 2 {
		t.Fatalf("List returned %d jobs, want 2", len(jobs))
	}
	if jobs[0].Name != "a-job" || jobs[1].Name != "b-job" {
		t.Errorf("List order = %s, %s", jobs[0].Name, jobs[1].Name)
	}
	if !jobs[0].CanTrigger || jobs[1].CanTrigger {
		t.Error("CanTrigger should follow triggerFunc")
	}
}

func TestRegistryTriggerNow(t *testing.T) {
	c := cron.New()
	r := NewRegistry(testutil.TestLogger())

	called := 0
	_ = r.Add(c, "count", "", "@daily", func() {}, func() error { called++; return nil })
	_ = r.Add(c, "manual-off", "", "@daily", func() {}, nil)

	if err := r.TriggerNow("count"); err != nil {
		t.Fatalf("TriggerNow: %v", err)
	}
	if called != 1 {
		t.Errorf("trigger called %d times, want 1", called)
	}
	if err := r.TriggerNow("manual-off"); err == nil {
		t.Error("TriggerNow without trigger func should fail")
	}
	if err := r.TriggerNow("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("TriggerNow(missing) = %v, want ErrJobNotFound", err)
	}
}

func TestRegistryUpdateSchedule(t *testing.T) {
	c := cron.New()
	r := NewRegistry(testutil.TestLogger())
	_ = r.Add(c, "job", "", "@daily", func() {}, nil)

	if err := r.UpdateSchedule("job", "*/10 * * * *"); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	jobs := r.List()
	if jobs[0].Schedule != "*/10 * * * *" || !jobs[0].IsOverridden {
		t.Errorf("job = %+v, want overridden schedule", jobs[0])
	}
	if len(c.Entries()) != 1 {
		t.Errorf("cron has %d entries, want 1", len(c.Entries()))
	}

	if err := r.UpdateSchedule("job", "bogus"); err == nil {
		t.Error("UpdateSchedule with invalid expression should fail")
	}
	if err := r.UpdateSchedule("missing", "@daily"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("UpdateSchedule(missing) = %v, want ErrJobNotFound", err)
	}
}
