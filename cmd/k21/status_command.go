package main

import (
	"fmt"
	"image"
	"strconv"

	"github.com/spf13/cobra"

	"k21/internal/deps"
	"k21/internal/frames"
	"k21/internal/preflight"
)

// listDisplays is swapped in tests.
var listDisplays = frames.Displays

type dependencyReport struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type checkReport struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

type displayReport struct {
	Index  int `json:"index"`
	Width  int `json:"width"`
	Height int `json:"height"`
	X      int `json:"x"`
	Y      int `json:"y"`
}

type statusReport struct {
	ConfigPath   string             `json:"config_path"`
	Processor    string             `json:"processor"`
	Dependencies []dependencyReport `json:"dependencies"`
	Checks       []checkReport      `json:"checks"`
	Displays     []displayReport    `json:"displays"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report external tools, output directories and displays",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := statusReport{
				ConfigPath:   ctx.configPath,
				Processor:    cfg.Processor.Type,
				Dependencies: dependencyReports(preflight.CheckSystemDeps(cfg)),
				Checks:       checkReports(preflight.RunAll(cmd.Context(), cfg)),
				Displays:     displayReports(listDisplays()),
			}
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, report)
			}
			renderStatus(cmd, report, isTerminal(cmd.OutOrStdout()))
			return nil
		},
	}
}

func dependencyReports(statuses []deps.Status) []dependencyReport {
	out := make([]dependencyReport, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, dependencyReport{
			Name:      s.Name,
			Command:   s.Command,
			Optional:  s.Optional,
			Available: s.Available,
			Version:   s.Version,
			Detail:    s.Detail,
		})
	}
	return out
}

func checkReports(results []preflight.Result) []checkReport {
	out := make([]checkReport, 0, len(results))
	for _, r := range results {
		out = append(out, checkReport{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

func displayReports(bounds []image.Rectangle) []displayReport {
	out := make([]displayReport, 0, len(bounds))
	for i, b := range bounds {
		out = append(out, displayReport{Index: i, Width: b.Dx(), Height: b.Dy(), X: b.Min.X, Y: b.Min.Y})
	}
	return out
}

func renderStatus(cmd *cobra.Command, report statusReport, colorize bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config: %s\n", report.ConfigPath)
	fmt.Fprintf(out, "Processor: %s\n", report.Processor)

	depRows := make([][]string, 0, len(report.Dependencies))
	for _, d := range report.Dependencies {
		kind := statusOK
		switch {
		case !d.Available && d.Optional:
			kind = statusWarn
		case !d.Available:
			kind = statusError
		}
		detail := d.Version
		if !d.Available {
			detail = d.Detail
		}
		depRows = append(depRows, []string{d.Name, d.Command, statusLabel(kind, colorize), detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Dependency", "Command", "Status", "Detail"}, depRows, nil))

	if len(report.Checks) > 0 {
		checkRows := make([][]string, 0, len(report.Checks))
		for _, c := range report.Checks {
			kind := statusOK
			if !c.Passed {
				kind = statusError
			}
			checkRows = append(checkRows, []string{c.Name, statusLabel(kind, colorize), c.Detail})
		}
		fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, checkRows, nil))
	}

	if len(report.Displays) == 0 {
		fmt.Fprintf(out, "Displays: %s none detected\n", statusLabel(statusWarn, colorize))
		return
	}
	displayRows := make([][]string, 0, len(report.Displays))
	for _, d := range report.Displays {
		displayRows = append(displayRows, []string{
			strconv.Itoa(d.Index),
			fmt.Sprintf("%dx%d", d.Width, d.Height),
			fmt.Sprintf("%d,%d", d.X, d.Y),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Display", "Size", "Origin"}, displayRows,
		[]columnAlignment{alignRight, alignLeft, alignLeft}))
}
