// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const repoListXML = `<?xml version='1.0'?>
<stream>
<repo-list>
<repo alias="repo-oss" name="Main Repository" type="rpm-md" enabled="1" autorefresh="1"><url>http://example.test/oss</url></repo>
<repo alias="repo-debug" name="Debug Repository" type="rpm-md" enabled="0" autorefresh="0"><url>http://example.test/debug</url></repo>
<repo alias="repo-update" name="Update Repository" type="rpm-md" enabled="1" autorefresh="1"><url>http://example.test/update</url></repo>
</repo-list>
</stream>`

const dryRunXML = `<?xml version='1.0'?>
<stream>
<message type="info">Loading repository data...</message>
<install-summary download-size="104857600" space-usage-diff="2048" packages-to-change="3">
<to-upgrade>
<solvable type="package" name="vim" edition="9.1" arch="x86_64"/>
<solvable type="package" name="htop" edition="3.3" arch="x86_64"/>
</to-upgrade>
<to-install>
<solvable type="package" name="ripgrep" edition="14.1" arch="x86_64"/>
<solvable type="patch" name="openSUSE-2026-1" edition="1" arch="noarch"/>
</to-install>
</install-summary>
</stream>`

const problemXML = `<?xml version='1.0'?>
<stream>
<message type="error">Problem: nothing provides libfoo needed by bar</message>
<prompt id="1"><text>Choose from the above solutions...</text></prompt>
</stream>`

const updateListXML = `<?xml version='1.0'?>
<stream>
<update-status version="0.6">
<update-list>
<update name="vim" edition="9.1" arch="x86_64" kind="package"/>
<update name="curl" edition="8.9" arch="x86_64" kind="package"/>
<update name="openSUSE-2026-2" edition="1" arch="noarch" kind="patch"/>
</update-list>
</update-status>
</stream>`

// scriptedRunner answers each invocation from a queue keyed by a verb
// present in the argument list.
func scriptedRunner(t *testing.T, responses map[string]string) Runner {
	t.Helper()
	return func(_ context.Context, _ string, args ...string) ([]byte, error) {
		joined := strings.Join(args, " ")
		for verb, xml := range responses {
			if strings.Contains(joined, verb) {
				return []byte(xml), nil
			}
		}
		t.Fatalf("unexpected tool invocation: %s", joined)
		return nil, nil
	}
}

func TestEnabledAliases(t *testing.T) {
	src := &Source{Tool: "zypper", Run: scriptedRunner(t, map[string]string{"repos": repoListXML})}

	aliases, err := src.EnabledAliases(context.Background())
	if err != nil {
		t.Fatalf("EnabledAliases failed: %v", err)
	}
	want := []string{"repo-oss", "repo-update"}
	if !reflect.DeepEqual(aliases, want) {
		t.Errorf("aliases = %v, want %v", aliases, want)
	}
}

func TestDownloadsFromDryRun(t *testing.T) {
	src := &Source{Tool: "zypper", Run: scriptedRunner(t, map[string]string{"dist-upgrade": dryRunXML})}

	names, err := src.Downloads(context.Background(), []string{"dist-upgrade"})
	if err != nil {
		t.Fatalf("Downloads failed: %v", err)
	}
	// Patches are not downloadable objects; only package solvables
	// become work items.
	want := []string{"vim", "htop", "ripgrep"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestDownloadsFallsBackOnResolverProblem(t *testing.T) {
	src := &Source{Tool: "zypper", Run: scriptedRunner(t, map[string]string{
		"dist-upgrade": problemXML,
		"list-updates": updateListXML,
	})}

	names, err := src.Downloads(context.Background(), []string{"dist-upgrade"})
	if err != nil {
		t.Fatalf("Downloads failed: %v", err)
	}
	want := []string{"vim", "curl"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("fallback names = %v, want %v", names, want)
	}
}

// failingRunner simulates a tool invocation that dies before producing
// any output, e.g. a broken repository configuration.
func failingRunner(output map[string]string) Runner {
	return func(_ context.Context, _ string, args ...string) ([]byte, error) {
		joined := strings.Join(args, " ")
		for verb, xml := range output {
			if strings.Contains(joined, verb) {
				return []byte(xml), nil
			}
		}
		return nil, errors.New("exit status 6")
	}
}

func TestEnabledAliasesReportsToolFailure(t *testing.T) {
	src := &Source{Tool: "zypper", Run: failingRunner(nil)}

	aliases, err := src.EnabledAliases(context.Background())
	if err == nil {
		t.Fatal("EnabledAliases returned nil error for a failed listing")
	}
	if len(aliases) != 0 {
		t.Errorf("aliases = %v alongside an error", aliases)
	}
}

func TestDownloadsFailsWhenDryRunProducesNothing(t *testing.T) {
	src := &Source{Tool: "zypper", Run: failingRunner(nil)}

	// A failed invocation with empty output must not be mistaken for
	// an empty plan.
	if _, err := src.Downloads(context.Background(), []string{"dist-upgrade"}); err == nil {
		t.Fatal("Downloads returned nil error for a failed dry run with no output")
	}
}

func TestDownloadsToleratesNonZeroDryRunWithOutput(t *testing.T) {
	// The resolver-problem path: the dry run exits non-zero but still
	// emits XML; the fallback listing must still be consulted.
	run := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		joined := strings.Join(args, " ")
		if strings.Contains(joined, "dist-upgrade") {
			return []byte(problemXML), errors.New("exit status 4")
		}
		if strings.Contains(joined, "list-updates") {
			return []byte(updateListXML), nil
		}
		return nil, errors.New("unexpected invocation: " + joined)
	}
	src := &Source{Tool: "zypper", Run: run}

	names, err := src.Downloads(context.Background(), []string{"dist-upgrade"})
	if err != nil {
		t.Fatalf("Downloads failed: %v", err)
	}
	want := []string{"vim", "curl"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestDownloadsReportsFallbackFailure(t *testing.T) {
	src := &Source{Tool: "zypper", Run: failingRunner(map[string]string{
		"dist-upgrade": problemXML,
	})}

	if _, err := src.Downloads(context.Background(), []string{"dist-upgrade"}); err == nil {
		t.Fatal("Downloads returned nil error for a failed update listing")
	}
}

func TestNeedsFallbackMarkers(t *testing.T) {
	if !needsFallback([]byte(problemXML)) {
		t.Error("resolver problem output not flagged for fallback")
	}
	if needsFallback([]byte(dryRunXML)) {
		t.Error("clean dry-run output flagged for fallback")
	}
}

func TestParseGarbage(t *testing.T) {
	src := &Source{Tool: "zypper", Run: scriptedRunner(t, map[string]string{"repos": "<unclosed"})}
	if _, err := src.Repos(context.Background()); err == nil {
		t.Error("Repos accepted unparseable output")
	}
}
