package awsservices

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/antigravity-dev/warmcli/internal/grabber"
)

type fakeEC2Client struct {
	describeInstancesOut *ec2.DescribeInstancesOutput
	describeVpcsOut      *ec2.DescribeVpcsOutput
	attributeOut         *ec2.DescribeInstanceAttributeOutput
	sawInstanceID        string
	sawAttribute         ec2types.InstanceAttributeName
}

func (f *fakeEC2Client) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return f.describeInstancesOut, nil
}

func (f *fakeEC2Client) DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	return f.describeVpcsOut, nil
}

func (f *fakeEC2Client) DescribeInstanceAttribute(ctx context.Context, params *ec2.DescribeInstanceAttributeInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceAttributeOutput, error) {
	if params.InstanceId != nil {
		f.sawInstanceID = *params.InstanceId
	}
	f.sawAttribute = params.Attribute
	return f.attributeOut, nil
}

func TestEC2ServiceDescribeInstancesReturnsGenericPage(t *testing.T) {
	instanceID := "i-0123456789abcdef0"
	fake := &fakeEC2Client{
		describeInstancesOut: &ec2.DescribeInstancesOutput{
			Reservations: []ec2types.Reservation{
				{Instances: []ec2types.Instance{{InstanceId: &instanceID}}},
			},
		},
	}
	svc := NewEC2Service(fake)

	m, ok := svc.MethodByName("DescribeInstances")
	if !ok {
		t.Fatalf("expected DescribeInstances method")
	}

	page, next, err := m.Invoke(grabber.NewArgs(nil), "")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if next != "" {
		t.Fatalf("expected no next page token, got %q", next)
	}

	top, ok := page.(map[string]any)
	if !ok {
		t.Fatalf("expected generic map page, got %T", page)
	}
	if _, ok := top["Reservations"]; !ok {
		t.Fatalf("expected Reservations key in generic page, got %v", top)
	}
}

func TestEC2ServiceDescribeInstanceAttributeRequiresBothFields(t *testing.T) {
	fake := &fakeEC2Client{attributeOut: &ec2.DescribeInstanceAttributeOutput{}}
	svc := NewEC2Service(fake)

	m, ok := svc.MethodByName("DescribeInstanceAttribute")
	if !ok {
		t.Fatalf("expected DescribeInstanceAttribute method")
	}
	if _, ok := m.Requires["InstanceId"]; !ok {
		t.Fatalf("expected InstanceId to be a required shape")
	}
	if _, ok := m.Requires["Attribute"]; !ok {
		t.Fatalf("expected Attribute to be a required shape")
	}

	args := grabber.NewArgs(map[string]*grabber.Arg{
		"InstanceId": grabber.StaticArg("i-abc123"),
		"Attribute":  grabber.StaticArg("instanceType"),
	})

	if _, _, err := m.Invoke(args, ""); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if fake.sawInstanceID != "i-abc123" {
		t.Fatalf("expected InstanceId to reach the client, got %q", fake.sawInstanceID)
	}
	if fake.sawAttribute != ec2types.InstanceAttributeName("instanceType") {
		t.Fatalf("expected Attribute to reach the client, got %q", fake.sawAttribute)
	}
}

func TestEC2ServiceDescribeInstanceAttributeMissingBindingErrors(t *testing.T) {
	fake := &fakeEC2Client{attributeOut: &ec2.DescribeInstanceAttributeOutput{}}
	svc := NewEC2Service(fake)
	m, _ := svc.MethodByName("DescribeInstanceAttribute")

	if _, _, err := m.Invoke(grabber.NewArgs(nil), ""); err == nil {
		t.Fatalf("expected error when InstanceId/Attribute are unbound")
	}
}
