package awsservices

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/antigravity-dev/warmcli/internal/grabber"
)

type fakeS3Client struct {
	listBucketsOut     *s3.ListBucketsOutput
	getBucketPolicyOut *s3.GetBucketPolicyOutput
	sawBucket          string
}

func (f *fakeS3Client) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	return f.listBucketsOut, nil
}

func (f *fakeS3Client) GetBucketPolicy(ctx context.Context, params *s3.GetBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error) {
	if params.Bucket != nil {
		f.sawBucket = *params.Bucket
	}
	return f.getBucketPolicyOut, nil
}

func TestS3ServiceListBucketsReturnsGenericPage(t *testing.T) {
	fake := &fakeS3Client{listBucketsOut: &s3.ListBucketsOutput{}}
	svc := NewS3Service(fake)

	m, ok := svc.MethodByName("ListBuckets")
	if !ok {
		t.Fatalf("expected ListBuckets method")
	}

	page, _, err := m.Invoke(grabber.NewArgs(nil), "")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if _, ok := page.(map[string]any); !ok {
		t.Fatalf("expected generic map page, got %T", page)
	}
}

func TestS3ServiceGetBucketPolicyRequiresBucket(t *testing.T) {
	fake := &fakeS3Client{getBucketPolicyOut: &s3.GetBucketPolicyOutput{}}
	svc := NewS3Service(fake)

	m, ok := svc.MethodByName("GetBucketPolicy")
	if !ok {
		t.Fatalf("expected GetBucketPolicy method")
	}
	if _, ok := m.Requires["Bucket"]; !ok {
		t.Fatalf("expected Bucket to be a required shape")
	}

	args := grabber.NewArgs(map[string]*grabber.Arg{
		"Bucket": grabber.StaticArg("my-bucket"),
	})
	if _, _, err := m.Invoke(args, ""); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if fake.sawBucket != "my-bucket" {
		t.Fatalf("expected Bucket to reach the client, got %q", fake.sawBucket)
	}
}

func TestS3ServiceGetBucketPolicyMissingBindingErrors(t *testing.T) {
	fake := &fakeS3Client{getBucketPolicyOut: &s3.GetBucketPolicyOutput{}}
	svc := NewS3Service(fake)
	m, _ := svc.MethodByName("GetBucketPolicy")

	if _, _, err := m.Invoke(grabber.NewArgs(nil), ""); err == nil {
		t.Fatalf("expected error when Bucket is unbound")
	}
}
