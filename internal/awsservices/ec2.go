// Package awsservices builds grabber.Service values backed by real
// aws-sdk-go-v2 generated service clients, registering their read-only
// operations (describe/list/get) with the planner via reflection over the
// clients' own generated Input/Output types.
package awsservices

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/antigravity-dev/warmcli/internal/grabber"
)

// EC2API is the subset of *ec2.Client the planner drives, narrowed to an
// interface so tests can substitute a fake without a live AWS account.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeInstanceAttribute(ctx context.Context, params *ec2.DescribeInstanceAttributeInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceAttributeOutput, error)
}

var ec2ReadOnlyMethods = []string{
	"DescribeInstances",
	"DescribeVpcs",
	"DescribeInstanceAttribute",
}

// NewEC2Service builds a grabber.Service named "ec2" over client, exposing
// DescribeInstances, DescribeVpcs, and DescribeInstanceAttribute.
// DescribeInstanceAttribute requires both InstanceId and Attribute, so it is
// the one EC2 method here that exercises Method.HowToCall's required-input
// resolution rather than running ambiently.
func NewEC2Service(client EC2API) *grabber.Service {
	shapes := make(map[reflect.Type]*grabber.Shape)

	return grabber.NewService("ec2", ec2ReadOnlyMethods, func(svc *grabber.Service, name string) (*grabber.Method, bool) {
		switch name {
		case "DescribeInstances":
			output := grabber.ShapeFromType(reflect.TypeOf(ec2.DescribeInstancesOutput{}), nil, shapes)
			m := grabber.NewMethod(name, svc, nil, output)
			m.Invoke = func(args *grabber.Args, pageToken string) (any, string, error) {
				in := &ec2.DescribeInstancesInput{}
				if pageToken != "" {
					in.NextToken = &pageToken
				}
				out, err := client.DescribeInstances(context.Background(), in)
				if err != nil {
					return nil, "", fmt.Errorf("awsservices: ec2 DescribeInstances: %w", err)
				}
				next := ""
				if out.NextToken != nil {
					next = *out.NextToken
				}
				page, err := toGenericPage(out)
				if err != nil {
					return nil, "", err
				}
				return page, next, nil
			}
			return m, true

		case "DescribeVpcs":
			output := grabber.ShapeFromType(reflect.TypeOf(ec2.DescribeVpcsOutput{}), nil, shapes)
			m := grabber.NewMethod(name, svc, nil, output)
			m.Invoke = func(args *grabber.Args, pageToken string) (any, string, error) {
				in := &ec2.DescribeVpcsInput{}
				if pageToken != "" {
					in.NextToken = &pageToken
				}
				out, err := client.DescribeVpcs(context.Background(), in)
				if err != nil {
					return nil, "", fmt.Errorf("awsservices: ec2 DescribeVpcs: %w", err)
				}
				next := ""
				if out.NextToken != nil {
					next = *out.NextToken
				}
				page, err := toGenericPage(out)
				if err != nil {
					return nil, "", err
				}
				return page, next, nil
			}
			return m, true

		case "DescribeInstanceAttribute":
			inputType := reflect.TypeOf(ec2.DescribeInstanceAttributeInput{})
			output := grabber.ShapeFromType(reflect.TypeOf(ec2.DescribeInstanceAttributeOutput{}), nil, shapes)
			requires := requiredMemberShapes(inputType, shapes, "InstanceId", "Attribute")
			m := grabber.NewMethod(name, svc, requires, output)
			m.Invoke = func(args *grabber.Args, pageToken string) (any, string, error) {
				instanceIDArg := args.Get("InstanceId")
				if instanceIDArg == nil {
					return nil, "", fmt.Errorf("awsservices: ec2 DescribeInstanceAttribute: missing InstanceId binding")
				}
				attrArg := args.Get("Attribute")
				if attrArg == nil {
					return nil, "", fmt.Errorf("awsservices: ec2 DescribeInstanceAttribute: missing Attribute binding")
				}
				instanceID, _ := instanceIDArg.Value.(string)
				attr, _ := attrArg.Value.(string)
				in := &ec2.DescribeInstanceAttributeInput{
					InstanceId: &instanceID,
					Attribute:  ec2types.InstanceAttributeName(attr),
				}
				out, err := client.DescribeInstanceAttribute(context.Background(), in)
				if err != nil {
					return nil, "", fmt.Errorf("awsservices: ec2 DescribeInstanceAttribute: %w", err)
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
