package changeset

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestGateIntegerSleeps(t *testing.T) {
	var slept time.Duration
	decision, err := Gate("2", strings.NewReader(""), &bytes.Buffer{}, func(d time.Duration) { slept = d })
	if err != nil {
		t.Fatalf("gate failed: %v", err)
	}
	if decision != GateProceed {
		t.Fatal("expected proceed")
	}
	if slept != 2*time.Second {
		t.Fatalf("expected 2s sleep, got %v", slept)
	}
}

func TestGateDefaultsTo10Seconds(t *testing.T) {
	var slept time.Duration
	decision, err := Gate("", strings.NewReader(""), &bytes.Buffer{}, func(d time.Duration) { slept = d })
	if err != nil {
		t.Fatalf("gate failed: %v", err)
	}
	if decision != GateProceed || slept != defaultGateSeconds*time.Second {
		t.Fatalf("expected default 10s proceed, got decision=%v slept=%v", decision, slept)
	}
}

func TestGateNoAborts(t *testing.T) {
	decision, err := Gate("no", strings.NewReader(""), &bytes.Buffer{}, func(time.Duration) {})
	if err != nil {
		t.Fatalf("gate failed: %v", err)
	}
	if decision != GateAbort {
		t.Fatal("expected abort")
	}
}

func TestGateZeroAborts(t *testing.T) {
	decision, err := Gate("0", strings.NewReader(""), &bytes.Buffer{}, func(time.Duration) {})
	if err != nil {
		t.Fatalf("gate failed: %v", err)
	}
	if decision != GateAbort {
		t.Fatal("expected abort")
	}
}

func TestGateAskYesProceeds(t *testing.T) {
	decision, err := Gate("ask", strings.NewReader("y\n"), &bytes.Buffer{}, func(time.Duration) {})
	if err != nil {
		t.Fatalf("gate failed: %v", err)
	}
	if decision != GateProceed {
		t.Fatal("expected proceed on yes answer")
	}
}

func TestGateAskNoAborts(t *testing.T) {
	decision, err := Gate("ask", strings.NewReader("n\n"), &bytes.Buffer{}, func(time.Duration) {})
	if err != nil {
		t.Fatalf("gate failed: %v", err)
	}
	if decision != GateAbort {
		t.Fatal("expected abort on no answer")
	}
}

func TestResourceChangeLabel(t *testing.T) {
	rc := ResourceChange{Action: ActionModify, Replacement: ReplacementTrue}
	if got := rc.Label(); got != "Modify [Replace]" {
		t.Fatalf("unexpected label: %q", got)
	}

	add := ResourceChange{Action: ActionAdd}
	if got := add.Label(); got != "Add" {
		t.Fatalf("unexpected label: %q", got)
	}
}

func TestResourceChangeSortedDetailsDedupsByPath(t *testing.T) {
	rc := ResourceChange{
		Details: []ChangeDetail{
			{Path: "b", BeforeValue: "1", AfterValue: "2"},
			{Path: "a", BeforeValue: "1", AfterValue: "2"},
			{Path: "a", BeforeValue: "3", AfterValue: "4", CausingEntity: "x"},
		},
	}

	got := rc.SortedDetails()
	if len(got) != 2 {
		t.Fatalf("expected de-duplication to 2 entries, got %d", len(got))
	}
	if got[0].Path != "a" || got[1].Path != "b" {
		t.Fatalf("expected sort by path, got %+v", got)
	}
}

func TestIsDeployUserAgent(t *testing.T) {
	if !IsDeployUserAgent("aws-cli/2.0 cloudformation.deploy") {
		t.Fatal("expected deploy user-agent to match")
	}
	if IsDeployUserAgent("aws-cli/2.0 s3.cp") {
		t.Fatal("expected non-deploy user-agent not to match")
	}
}

func TestUnifiedDiff(t *testing.T) {
	diff, err := UnifiedDiff("Properties.InstanceType", "t2.micro", "t3.micro")
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	if !strings.Contains(diff, "t2.micro") || !strings.Contains(diff, "t3.micro") {
		t.Fatalf("expected diff to mention both values, got: %s", diff)
	}
}

func TestTailerResumesFromLastSeen(t *testing.T) {
	tailer := NewTailer("stack-1")

	first := []StackEvent{
		{EventID: "3", Timestamp: 3, LogicalID: "stack-1", PhysicalID: "stack-1", StackID: "stack-1", Status: "CREATE_IN_PROGRESS"},
		{EventID: "2", Timestamp: 2, LogicalID: "stack-1", PhysicalID: "stack-1", StackID: "stack-1", Reason: "User Initiated", Status: "CREATE_IN_PROGRESS"},
		{EventID: "1", Timestamp: 1, LogicalID: "stack-1", PhysicalID: "stack-1", StackID: "stack-1", Status: "CREATE_IN_PROGRESS"},
	}

	fresh := tailer.Poll(first)
	if len(fresh) != 1 || fresh[0].EventID != "3" {
		t.Fatalf("expected only event 3 new after initial marker, got %+v", fresh)
	}

	second := append([]StackEvent{
		{EventID: "4", Timestamp: 4, LogicalID: "stack-1", PhysicalID: "stack-1", StackID: "stack-1", Status: "CREATE_COMPLETE"},
	}, first...)

	fresh2 := tailer.Poll(second)
	if len(fresh2) != 1 || fresh2[0].EventID != "4" {
		t.Fatalf("expected only event 4 on second poll, got %+v", fresh2)
	}
}

func TestStackEventColor(t *testing.T) {
	failed := StackEvent{Status: "CREATE_FAILED"}
	if failed.Color() != colorRed {
		t.Fatal("expected red for FAILED")
	}
	complete := StackEvent{Status: "CREATE_COMPLETE"}
	if complete.Color() != colorGreen {
		t.Fatal("expected green for COMPLETE")
	}
}
