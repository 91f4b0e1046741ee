// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pavinjosdev/zypperoni/scheduler"
)

func TestPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, 5)

	item := scheduler.WorkItem{ID: "vim", Ordinal: 2}
	p.Report(scheduler.Event{Kind: scheduler.EventStart, Item: item, Op: scheduler.OpDownload})
	p.Report(scheduler.Event{Kind: scheduler.EventSuccess, Item: item, Op: scheduler.OpDownload})

	out := buf.String()
	if !strings.Contains(out, "[3/5] downloading package vim") {
		t.Errorf("start line missing, got:\n%s", out)
	}
	if !strings.Contains(out, "[3/5] done vim") {
		t.Errorf("success line missing, got:\n%s", out)
	}
	// A bytes.Buffer is not a terminal: no escape sequences.
	if strings.Contains(out, "\x1b[") {
		t.Errorf("ANSI escapes written to a non-terminal:\n%q", out)
	}
}

func TestPrinterFailureDetail(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, 1)

	p.Report(scheduler.Event{
		Kind: scheduler.EventFailure,
		Item: scheduler.WorkItem{ID: "htop"},
		Code: 104,
	})
	if !strings.Contains(buf.String(), "failed htop: exit status 104") {
		t.Errorf("failure line = %q", buf.String())
	}
}

func TestSummaryLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, 5)

	p.Summary(scheduler.Summary{Total: 5, Succeeded: 3, Failed: 1, Cancelled: 1})
	out := buf.String()
	for _, want := range []string{"3 of 5 succeeded", "1 failed", "1 cancelled"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary %q missing %q", out, want)
		}
	}
}
