package report

import "testing"

func TestReportAccumulation(t *testing.T) {
	r := NewReport()
	if !r.Valid {
		t.Fatalf("fresh report should be valid")
	}

	r.Warnf(LevelGeometry, "stackup/contributors/0", "feature %s has no geometry", "FEAT-1")
	if !r.Valid {
		t.Errorf("warnings must not invalidate the report")
	}
	if len(r.Warnings) != 1 || r.Warnings[0].Severity != SeverityWarning {
		t.Errorf("warning not recorded: %+v", r.Warnings)
	}

	r.AddError(Finding{Level: LevelSchema, Message: "empty contributor list"})
	if r.Valid {
		t.Errorf("errors must invalidate the report")
	}
	if r.Summary != "1 errors, 1 warnings, 0 info" {
		t.Errorf("summary = %q", r.Summary)
	}
}

func TestMerge(t *testing.T) {
	a := NewReport()
	a.Infof(LevelAnalysis, "", "derived bounds used")

	b := NewReport()
	b.AddError(Finding{Level: LevelSchema, Message: "bad"})

	a.Merge(b)
	if a.Valid {
		t.Errorf("merging an invalid report must invalidate")
	}
	if len(a.Errors) != 1 || len(a.Info) != 1 {
		t.Errorf("merge lost findings: %s", a.Summary)
	}
}
