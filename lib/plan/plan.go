// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/beevik/etree"
)

// Runner executes the tool and returns its stdout. Injectable so plan
// tests run against canned XML instead of a live zypper.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// execRunner is the default Runner. Only stdout is parsed; zypper
// writes progress noise to stderr even under --xmlout. Non-zero exits
// are returned as errors alongside whatever stdout was captured; the
// caller decides whether partial output is usable.
func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()
	return stdout.Bytes(), err
}

// Source produces work-item identifiers from the tool's XML output.
type Source struct {
	// Tool is the package manager binary.
	Tool string

	// Run overrides tool execution. Defaults to exec with stdout
	// capture.
	Run Runner

	// Logger for derivation traces.
	Logger *slog.Logger
}

// Repo is one configured repository.
type Repo struct {
	Alias   string
	Name    string
	Enabled bool
}

func (s *Source) runner() Runner {
	if s.Run != nil {
		return s.Run
	}
	return execRunner
}

func (s *Source) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Repos lists the configured repositories.
func (s *Source) Repos(ctx context.Context) ([]Repo, error) {
	output, err := s.runner()(ctx, s.Tool, "--xmlout", "--non-interactive", "repos")
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	return parseRepos(output)
}

// EnabledAliases returns the aliases of enabled repositories, the work
// items of a refresh batch.
func (s *Source) EnabledAliases(ctx context.Context) ([]string, error) {
	repos, err := s.Repos(ctx)
	if err != nil {
		return nil, err
	}
	var aliases []string
	for _, repo := range repos {
		if repo.Enabled {
			aliases = append(aliases, repo.Alias)
		}
	}
	return aliases, nil
}

// Downloads returns the package names a transaction would fetch, the
// work items of a download batch. verbArgs is the transaction being
// planned, e.g. ["dist-upgrade"] or ["install", "vim"]. The primary
// plan is a dry run of that transaction; when its output carries the
// fallback markers the plainer update listing is used instead.
func (s *Source) Downloads(ctx context.Context, verbArgs []string) ([]string, error) {
	args := append([]string{"--xmlout", "--non-interactive"}, verbArgs...)
	args = append(args, "--dry-run")
	output, err := s.runner()(ctx, s.Tool, args...)
	// A dry run that hits resolver problems exits non-zero but still
	// emits parseable output. Only a failure with nothing to parse is
	// fatal; the refresh and update listings tolerate no such thing.
	if err != nil && len(bytes.TrimSpace(output)) == 0 {
		return nil, fmt.Errorf("planning %v: %w", verbArgs, err)
	}

	if needsFallback(output) {
		s.logger().Debug("dry-run plan unusable, deriving from update listing")
		output, err = s.runner()(ctx, s.Tool, "--xmlout", "--non-interactive", "list-updates")
		if err != nil {
			return nil, fmt.Errorf("listing updates: %w", err)
		}
		return parseUpdateList(output)
	}

	return parseInstallSummary(output)
}

// needsFallback is the sole place zypper output text is inspected. The
// markers are coupled to zypper's format; adjusting them here adjusts
// the whole fallback behavior.
func needsFallback(output []byte) bool {
	return bytes.Contains(output, []byte("<prompt ")) ||
		bytes.Contains(output, []byte("Problem:"))
}

func parseRepos(output []byte) ([]Repo, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(output); err != nil {
		return nil, fmt.Errorf("parsing repository listing: %w", err)
	}

	var repos []Repo
	for _, el := range doc.FindElements("//repo-list/repo") {
		repos = append(repos, Repo{
			Alias:   el.SelectAttrValue("alias", ""),
			Name:    el.SelectAttrValue("name", ""),
			Enabled: el.SelectAttrValue("enabled", "0") == "1",
		})
	}
	return repos, nil
}

func parseInstallSummary(output []byte) ([]string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(output); err != nil {
		return nil, fmt.Errorf("parsing install summary: %w", err)
	}

	var names []string
	for _, el := range doc.FindElements("//install-summary//solvable") {
		if el.SelectAttrValue("type", "") != "package" {
			continue
		}
		if name := el.SelectAttrValue("name", ""); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func parseUpdateList(output []byte) ([]string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(output); err != nil {
		return nil, fmt.Errorf("parsing update listing: %w", err)
	}

	var names []string
	for _, el := range doc.FindElements("//update-list/update") {
		if kind := el.SelectAttrValue("kind", "package"); kind != "package" {
			continue
		}
		if name := el.SelectAttrValue("name", ""); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
