package grabber

import (
	"context"
	"testing"
)

// buildTestService wires a tiny fake "s3"-like service with two methods:
// ListBuckets (no inputs, returns a list of bucket names) and
// GetBucketPolicy (requires a bucket name, returns a policy document).
func buildTestService(t *testing.T) *Service {
	t.Helper()

	bucketNameShape := &Shape{Kind: ShapeString}
	listBucketsOutput := &Shape{
		Kind: ShapeStructure,
		required: map[string]struct{}{},
		Members: []Member{
			{Name: "Buckets", Shape: &Shape{Kind: ShapeList, Element: &Shape{
				Kind:     ShapeStructure,
				required: map[string]struct{}{},
				Members:  []Member{{Name: "Name", Shape: bucketNameShape}},
			}}},
		},
	}

	policyOutput := &Shape{Kind: ShapeString}

	var svc *Service
	svc = NewService("s3", []string{"ListBuckets", "GetBucketPolicy"}, func(s *Service, name string) (*Method, bool) {
		switch name {
		case "ListBuckets":
			m := NewMethod(name, s, map[string]*Shape{}, listBucketsOutput)
			m.Invoke = func(args *Args, pageToken string) (any, string, error) {
				return map[string]any{
					"Buckets": []any{
						map[string]any{"Name": "alpha"},
						map[string]any{"Name": "beta"},
					},
				}, "", nil
			}
			return m, true
		case "GetBucketPolicy":
			m := NewMethod(name, s, map[string]*Shape{"BucketName": bucketNameShape}, policyOutput)
			m.Invoke = func(args *Args, pageToken string) (any, string, error) {
				return "{}", "", nil
			}
			return m, true
		}
		return nil, false
	})
	return svc
}

func TestServiceHowToGetFindsListMethod(t *testing.T) {
	svc := buildTestService(t)

	results := svc.HowToGet("bucket name", "", &Shape{Kind: ShapeString}, NewArgs(nil), map[string]struct{}{}, map[string]struct{}{})
	if len(results) == 0 {
		t.Fatal("expected at least one resolved plan for bucket name")
	}

	top := results[0]
	if top.Kind != ArgCallOutput {
		t.Fatalf("expected top result to be a CallOutput, got kind %d", top.Kind)
	}
	if top.Call.Method.Name != "ListBuckets" {
		t.Fatalf("expected ListBuckets to win, got %s", top.Call.Method.Name)
	}
}

func TestServiceHowToGetRespectsCycleGuard(t *testing.T) {
	svc := buildTestService(t)
	getBucketPolicy, _ := svc.MethodByName("GetBucketPolicy")

	// A method may never appear inside its own resolution tree: asking
	// GetBucketPolicy to resolve "bucket name" while excluding itself should
	// not surface it as a candidate.
	excluded := map[string]struct{}{"GetBucketPolicy": {}}
	results := svc.HowToGet("bucket name", "GetBucketPolicy", &Shape{Kind: ShapeString}, NewArgs(nil), excluded, map[string]struct{}{})
	for _, r := range results {
		if r.Call != nil && r.Call.Method == getBucketPolicy {
			t.Fatal("excluded method must not appear in its own resolution")
		}
	}
}

func TestMethodHowToCallResolvesRequiredInput(t *testing.T) {
	svc := buildTestService(t)
	getBucketPolicy, ok := svc.MethodByName("GetBucketPolicy")
	if !ok {
		t.Fatal("expected GetBucketPolicy to be constructed")
	}

	resolved := getBucketPolicy.HowToCall(NewArgs(nil), map[string]struct{}{}, map[string]struct{}{})
	if resolved == nil {
		t.Fatal("expected GetBucketPolicy's BucketName requirement to resolve via ListBuckets")
	}
	if resolved.Get("BucketName") == nil {
		t.Fatal("expected BucketName binding to be populated")
	}
}

func TestMethodHowToCallCachesByArgs(t *testing.T) {
	svc := buildTestService(t)
	getBucketPolicy, _ := svc.MethodByName("GetBucketPolicy")

	args := NewArgs(nil)
	first := getBucketPolicy.HowToCall(args, map[string]struct{}{}, map[string]struct{}{})
	second := getBucketPolicy.HowToCall(args, map[string]struct{}{}, map[string]struct{}{})

	if first == nil || second == nil {
		t.Fatal("expected both calls to resolve")
	}
	if len(getBucketPolicy.cache[args.Key()]) != 1 {
		t.Fatalf("expected a single cache entry to be reused, got %d", len(getBucketPolicy.cache[args.Key()]))
	}
}

func TestExecutorRunsListBucketsAndWalksOutputPath(t *testing.T) {
	svc := buildTestService(t)
	listBuckets, _ := svc.MethodByName("ListBuckets")

	call := CallArg(listBuckets, NewArgs(nil))
	outputPath := NewOutputPath("Buckets", starSegment, "Name")
	callOutput := CallOutputArg(call, outputPath, nil, nil, &Shape{Kind: ShapeString})

	exec := NewExecutor(100, 10)
	values, err := exec.ExecuteOutput(context.Background(), callOutput)
	if err != nil {
		t.Fatalf("execute output failed: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 bucket names, got %d: %v", len(values), values)
	}
}

func TestOutputPathToJMESPath(t *testing.T) {
	p := NewOutputPath("Buckets", starSegment, "Name")
	if got := p.ToJMESPath(); got != "Buckets[].Name" {
		t.Fatalf("unexpected jmespath: %q", got)
	}
}

func TestKeySpecScoreMatchesSuffix(t *testing.T) {
	ks := MakeKeySpec("BucketName", "")
	score := ks.Score([]Token{"bucket", "name"})
	if score == nil {
		t.Fatal("expected a match for exact token sequence")
	}
}

func TestBackoffDelayZeroBaseIsZero(t *testing.T) {
	short := BackoffDelay(1, 0, 0)
	if short != 0 {
		t.Fatalf("zero base should produce zero delay, got %v", short)
	}
}
