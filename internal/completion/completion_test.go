package completion

import (
	"bytes"
	"strings"
	"testing"

	"github.com/antigravity-dev/warmcli/internal/grabber"
)

func TestWriteCompleteFrame(t *testing.T) {
	var buf bytes.Buffer
	err := WriteComplete(&buf, []Candidate{
		{Name: "us-east-1", Doc: "US East (N. Virginia)"},
		{Name: "us-west-2", Doc: "US West (Oregon)"},
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "complete\n") {
		t.Fatalf("expected complete directive, got %q", out[:20])
	}
	if !strings.HasSuffix(out, "\x00") {
		t.Fatal("expected NUL terminator")
	}
	if !strings.Contains(out, "us-east-1") || !strings.Contains(out, "US West (Oregon)") {
		t.Fatalf("expected names and docs present, got %q", out)
	}
}

func TestWriteDelegateFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDelegate(&buf, "compgen", []string{"-f", "--"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "delegate\ncompgen\n") {
		t.Fatalf("unexpected delegate frame: %q", out)
	}
}

func TestEnumCandidates(t *testing.T) {
	shape := &grabber.Shape{Kind: grabber.ShapeString, Enum: []string{"us-east-1", "us-west-2"}}
	candidates := EnumCandidates(shape)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
}

func TestStructureCombinationsCartesianProduct(t *testing.T) {
	shape := &grabber.Shape{
		Kind: grabber.ShapeStructure,
		Members: []grabber.Member{
			{Name: "Engine", Shape: &grabber.Shape{Kind: grabber.ShapeString, Enum: []string{"mysql", "postgres"}}},
			{Name: "Tier", Shape: &grabber.Shape{Kind: grabber.ShapeString, Enum: []string{"small", "large"}}},
		},
	}

	combos := StructureCombinations(shape)
	if len(combos) != 4 {
		t.Fatalf("expected 2x2=4 combinations, got %d: %+v", len(combos), combos)
	}
}

func TestEngineCompleteFromShapeEnum(t *testing.T) {
	shape := &grabber.Shape{Kind: grabber.ShapeString, Enum: []string{"json", "yaml"}}
	e := &Engine{ShapeOf: func(command, param string) *grabber.Shape { return shape }}

	got := e.Complete(nil, ParsedArgv{CurrentCommand: "ec2 describe-instances", CurrentParam: "output-format"})
	if len(got) != 2 {
		t.Fatalf("expected 2 enum candidates, got %d", len(got))
	}
}

func TestEngineCompleteGlobalRegion(t *testing.T) {
	e := &Engine{
		Partitions: PartitionEndpoints{"aws": {"us-east-1", "us-west-2"}},
		ShapeOf:    func(string, string) *grabber.Shape { return nil },
	}
	got := e.Complete(nil, ParsedArgv{CurrentParam: "region"})
	if len(got) != 2 {
		t.Fatalf("expected 2 region candidates, got %d", len(got))
	}
}

func TestEngineCompleteFallbackDedupesParsed(t *testing.T) {
	e := &Engine{
		ShapeOf: func(string, string) *grabber.Shape { return nil },
		SubcommandFlags: func(command string) ([]string, []string) {
			if command == "" {
				return nil, []string{"--region", "--output"}
			}
			return []string{"describe-instances", "run-instances"}, []string{"--filters*"}
		},
	}

	got := e.Complete(nil, ParsedArgv{
		CurrentCommand: "ec2",
		ParsedParams:   map[string]string{"region": "us-east-1"},
	})

	names := make(map[string]bool)
	for _, c := range got {
		names[c.Name] = true
	}
	if names["--region"] {
		t.Fatal("expected already-parsed --region to be deduplicated out")
	}
	if !names["describe-instances"] {
		t.Fatal("expected subcommands to be present")
	}
}
