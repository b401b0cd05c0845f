package awsservices

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/antigravity-dev/warmcli/internal/grabber"
)

// S3API is the subset of *s3.Client the planner drives.
type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketPolicy(ctx context.Context, params *s3.GetBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error)
}

var s3ReadOnlyMethods = []string{
	"ListBuckets",
	"GetBucketPolicy",
}

// NewS3Service builds a grabber.Service named "s3" over client. GetBucketPolicy
// requires a Bucket name, which the planner resolves via ListBuckets —
// this is the pair the spec's own examples use to illustrate chained
// argument discovery.
func NewS3Service(client S3API) *grabber.Service {
	shapes := make(map[reflect.Type]*grabber.Shape)

	return grabber.NewService("s3", s3ReadOnlyMethods, func(svc *grabber.Service, name string) (*grabber.Method, bool) {
		switch name {
		case "ListBuckets":
			output := grabber.ShapeFromType(reflect.TypeOf(s3.ListBucketsOutput{}), nil, shapes)
			m := grabber.NewMethod(name, svc, nil, output)
			m.Invoke = func(args *grabber.Args, pageToken string) (any, string, error) {
				in := &s3.ListBucketsInput{}
				if pageToken != "" {
					in.ContinuationToken = &pageToken
				}
				out, err := client.ListBuckets(context.Background(), in)
				if err != nil {
					return nil, "", fmt.Errorf("awsservices: s3 ListBuckets: %w", err)
				}
				next := ""
				if out.ContinuationToken != nil {
					next = *out.ContinuationToken
				}
				page, err := toGenericPage(out)
				if err != nil {
					return nil, "", err
				}
				return page, next, nil
			}
			return m, true

		case "GetBucketPolicy":
			inputType := reflect.TypeOf(s3.GetBucketPolicyInput{})
			output := grabber.ShapeFromType(reflect.TypeOf(s3.GetBucketPolicyOutput{}), nil, shapes)
			requires := requiredMemberShapes(inputType, shapes, "Bucket")
			m := grabber.NewMethod(name, svc, requires, output)
			m.Invoke = func(args *grabber.Args, pageToken string) (any, string, error) {
				bucketArg := args.Get("Bucket")
				if bucketArg == nil {
					return nil, "", fmt.Errorf("awsservices: s3 GetBucketPolicy: missing Bucket binding")
				}
				bucket, _ := bucketArg.Value.(string)
				out, err := client.GetBucketPolicy(context.Background(), &s3.GetBucketPolicyInput{Bucket: &bucket})
				if err != nil {
					return nil, "", fmt.Errorf("awsservices: s3 GetBucketPolicy: %w", err)
				}
				page, err := toGenericPage(out)
				if err != nil {
					return nil, "", err
				}
				return page, "", nil
			}
			return m, true
		}
		return nil, false
	})
}
