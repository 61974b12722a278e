package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehr/healthsync/internal/config"
	"github.com/ehr/healthsync/internal/fhirsync"
	"github.com/ehr/healthsync/internal/platform/db"
)

func TestPrintReport(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	rep := &fhirsync.Report{
		PatientFHIRID: "53373",
		StartedAt:     start,
		FinishedAt:    start.Add(1500 * time.Millisecond),
		PatientAction: fhirsync.ActionUpdate,
		Types: []fhirsync.TypeReport{
			{Resource: "Condition", Fetched: 3, Created: 1, Updated: 2},
			{Resource: "Goal", Failed: true, Hard: true, Error: "fatal outcome"},
			{Resource: "Procedure", Failed: true, Error: "timeout"},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, rep)
	out := buf.String()

	for _, want := range []string{"Patient 53373: update in 1.5s", "Condition", "HARD FAILURE: fatal outcome", "failed: timeout"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPrintReport_Deleted(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &fhirsync.Report{PatientFHIRID: "53373", PatientAction: fhirsync.ActionDelete, PatientDeleted: true})

	if !strings.Contains(buf.String(), "(deleted locally)") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if strings.Contains(buf.String(), "RESOURCE") {
		t.Error("expected no table without type reports")
	}
}

func TestPrintStatus(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, &fhirsync.SyncStatus{PatientFHIRID: "53373", LastSyncedAt: &at, Status: false})

	if got := buf.String(); got != "Patient 53373: last synced 2026-03-01 08:00:00 UTC, failed\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestPrintMigrations(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printMigrations(&buf, []db.MigrationStatus{
		{Version: 1, Name: "001_core.sql", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "002_sync_status.sql"},
	})
	out := buf.String()
	if !strings.Contains(out, "applied") || !strings.Contains(out, "pending") || !strings.Contains(out, "2026-03-01 08:00:00") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		flags []string
	}{
		{syncCmd(), []string{"patient", "force"}},
		{bootstrapCmd(), []string{"user", "patient"}},
		{statusCmd(), []string{"patient"}},
	}
	for _, tt := range tests {
		for _, f := range tt.flags {
			if tt.cmd.Flags().Lookup(f) == nil {
				t.Errorf("%s: missing --%s", tt.cmd.Name(), f)
			}
		}
	}

	var subs []string
	for _, c := range migrateCmd().Commands() {
		subs = append(subs, c.Name())
	}
	if strings.Join(subs, ",") != "status,up" {
		t.Errorf("migrate subcommands = %v", subs)
	}
}

func TestPatientFlag(t *testing.T) {
	a := &app{cfg: &config.Config{PatientFHIRID: "from-env"}}

	cmd := syncCmd()
	got, err := patientFlag(cmd, a)
	if err != nil || got != "from-env" {
		t.Errorf("expected env fallback, got %q %v", got, err)
	}

	cmd.Flags().Set("patient", "from-flag")
	got, _ = patientFlag(cmd, a)
	if got != "from-flag" {
		t.Errorf("expected flag to win, got %q", got)
	}

	a.cfg.PatientFHIRID = ""
	if _, err := patientFlag(statusCmd(), a); err == nil {
		t.Error("expected error without a patient")
	}
}

func TestBootstrapRequiresUser(t *testing.T) {
	cmd := bootstrapCmd()
	cmd.SetArgs([]string{"--patient", "53373"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--user") {
		t.Errorf("expected --user error, got %v", err)
	}
}
