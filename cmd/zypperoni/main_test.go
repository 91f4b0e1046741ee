// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"
)

func TestValidateJobs(t *testing.T) {
	for _, n := range validJobs {
		flags := commonFlags{jobs: n}
		if err := flags.validate(); err != nil {
			t.Errorf("jobs=%d rejected: %v", n, err)
		}
	}
	for _, n := range []int{0, -1, 3, 7, 16, 21, 100} {
		flags := commonFlags{jobs: n}
		if err := flags.validate(); err == nil {
			t.Errorf("jobs=%d accepted, want rejection", n)
		}
	}
}

func TestValidateReportsAllowedValues(t *testing.T) {
	flags := commonFlags{jobs: 3}
	err := flags.validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "[1 2 4 8 10 20]") {
		t.Errorf("error %q does not list the allowed values", err)
	}
}

func TestDefaultJobsIsValid(t *testing.T) {
	flags := commonFlags{jobs: defaultJobs}
	if err := flags.validate(); err != nil {
		t.Errorf("default jobs value %d rejected: %v", defaultJobs, err)
	}
}

func TestIntsList(t *testing.T) {
	got := intsList(validJobs)
	want := "1/2/4/8/10/20"
	if got != want {
		t.Errorf("intsList = %q, want %q", got, want)
	}
}
