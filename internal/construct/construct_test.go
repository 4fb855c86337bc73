package construct

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/intrinsics"
	"github.com/academic-agent/core-infra/resources/iam"
	"github.com/academic-agent/core-infra/resources/s3"
)

func newTestStack(t *testing.T, props StackProps) *Stack {
	t.Helper()
	stack, err := NewStack(NewApp(), "TestStack", props)
	require.NoError(t, err)
	return stack
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"UploadsBucket", true},
		{"Bucket1", true},
		{"", false},
		{"uploads-bucket", false},
		{"Uploads_Bucket", false},
		{"Uploads Bucket", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateID(tt.id)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidID)
			}
		})
	}
}

func TestEnvironment_String(t *testing.T) {
	assert.Equal(t, "aws://123456789012/eu-west-1", Environment{Account: "123456789012", Region: "eu-west-1"}.String())
	assert.Equal(t, "aws://unknown-account/unknown-region", Environment{}.String())
	assert.Equal(t, "aws://unknown-account/us-east-1", Environment{Region: "us-east-1"}.String())
	assert.True(t, Environment{}.IsAgnostic())
	assert.False(t, Environment{Region: "us-east-1"}.IsAgnostic())
}

func TestNewStack(t *testing.T) {
	app := NewApp()

	stack, err := NewStack(app, "CoreStack", StackProps{Description: "core"})
	require.NoError(t, err)
	assert.Equal(t, "CoreStack", stack.Name())
	assert.Equal(t, "core", stack.Description())

	_, err = NewStack(app, "CoreStack", StackProps{})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = NewStack(app, "1Stack", StackProps{})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = NewStack(nil, "Other", StackProps{})
	assert.Error(t, err)

	found, ok := app.Stack("CoreStack")
	require.True(t, ok)
	assert.Same(t, stack, found)
	assert.Len(t, app.Stacks(), 1)
}

func TestStack_AddResource_Errors(t *testing.T) {
	stack := newTestStack(t, StackProps{SkipBootstrapVersionRule: true})

	stack.AddResource("Uploads", s3.Bucket{})
	stack.AddResource("Uploads", s3.Bucket{})
	stack.AddResource("bad-id", s3.Bucket{})

	err := stack.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = stack.Template()
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestStack_ParameterIDCollidesWithResource(t *testing.T) {
	stack := newTestStack(t, StackProps{})
	stack.AddResource(BootstrapVersionParameter, s3.Bucket{})
	assert.ErrorIs(t, stack.Err(), ErrDuplicateID)
}

func TestStack_Template_Dependencies(t *testing.T) {
	stack := newTestStack(t, StackProps{SkipBootstrapVersionRule: true})

	bucket := stack.AddResource("Uploads", s3.Bucket{}, WithRemovalPolicy(RemovalRetain))
	stack.AddResource("UploadsPolicy", s3.BucketPolicy{
		Bucket: bucket.Ref(),
		PolicyDocument: intrinsics.PolicyDocument{
			Version: "2012-10-17",
			Statement: []any{intrinsics.DenyStatement{
				Effect:    "Deny",
				Principal: intrinsics.AWSPrincipal{intrinsics.AllPrincipal},
				Action:    "s3:*",
				Resource:  intrinsics.Any(bucket.Attr(s3.BucketAttrArn)),
			}},
		},
	})

	declared, err := stack.Declared()
	require.NoError(t, err)

	policy := declared["UploadsPolicy"]
	assert.Equal(t, "s3.BucketPolicy", policy.Type)
	assert.Equal(t, "AWS::S3::BucketPolicy", policy.CFType)
	assert.Equal(t, []string{"Uploads"}, policy.Dependencies)
	assert.Equal(t, []coreinfra.AttrRefUsage{{ResourceName: "Uploads", Attribute: "Arn"}}, policy.AttrRefUsages)

	tmpl, err := stack.Template()
	require.NoError(t, err)
	assert.Equal(t, "Retain", tmpl.Resources["Uploads"].DeletionPolicy)
	assert.Equal(t, "Retain", tmpl.Resources["Uploads"].UpdateReplacePolicy)
	assert.Empty(t, tmpl.Resources["UploadsPolicy"].DeletionPolicy)
	assert.Equal(t, map[string]any{"Ref": "Uploads"}, tmpl.Resources["UploadsPolicy"].Properties["Bucket"])
}

func TestStack_Template_UnknownReference(t *testing.T) {
	stack := newTestStack(t, StackProps{SkipBootstrapVersionRule: true})
	stack.AddResource("UploadsPolicy", s3.BucketPolicy{
		Bucket:         intrinsics.Ref{LogicalName: "Missing"},
		PolicyDocument: intrinsics.NewPolicyDocument(),
	})

	_, err := stack.Template()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownReference)
	assert.Contains(t, err.Error(), "Missing")
}

func TestStack_Template_UnknownOutputReference(t *testing.T) {
	stack := newTestStack(t, StackProps{SkipBootstrapVersionRule: true})
	stack.AddResource("Uploads", s3.Bucket{})
	stack.AddOutput("PoolId", coreinfra.Output{Value: intrinsics.Ref{LogicalName: "UserPool"}})

	_, err := stack.Template()
	assert.ErrorIs(t, err, ErrUnknownReference)
}

func TestStack_Template_PseudoParametersAllowed(t *testing.T) {
	stack := newTestStack(t, StackProps{SkipBootstrapVersionRule: true})
	stack.AddResource("Uploads", s3.Bucket{
		BucketName: intrinsics.Sub{String: "${AWS::StackName}-uploads"},
	})

	_, err := stack.Template()
	assert.NoError(t, err)
}

func TestStack_Template_Cycle(t *testing.T) {
	stack := newTestStack(t, StackProps{SkipBootstrapVersionRule: true})
	stack.AddResource("RoleA", iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(),
		Description:              coreinfra.AttrRef{Resource: "RoleB", Attribute: "Arn"},
	})
	stack.AddResource("RoleB", iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(),
		Description:              coreinfra.AttrRef{Resource: "RoleA", Attribute: "Arn"},
	})

	_, err := stack.Template()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
}

func TestStack_Template_SelfReference(t *testing.T) {
	stack := newTestStack(t, StackProps{SkipBootstrapVersionRule: true})
	stack.AddResource("Uploads", s3.Bucket{BucketName: intrinsics.Ref{LogicalName: "Uploads"}})

	_, err := stack.Template()
	assert.ErrorIs(t, err, ErrCycle)
}

func TestStack_WithDependsOn(t *testing.T) {
	stack := newTestStack(t, StackProps{SkipBootstrapVersionRule: true})
	role := stack.AddResource("SmsRole", iam.Role{AssumeRolePolicyDocument: intrinsics.NewPolicyDocument()})
	stack.AddResource("Uploads", s3.Bucket{}, WithDependsOn(role))

	tmpl, err := stack.Template()
	require.NoError(t, err)
	assert.Equal(t, []string{"SmsRole"}, tmpl.Resources["Uploads"].DependsOn)
}

func TestStack_BootstrapVersionRule(t *testing.T) {
	stack := newTestStack(t, StackProps{})
	stack.AddResource("Uploads", s3.Bucket{})

	tmpl, err := stack.Template()
	require.NoError(t, err)

	param, ok := tmpl.Parameters[BootstrapVersionParameter]
	require.True(t, ok)
	assert.Equal(t, "AWS::SSM::Parameter::Value<String>", param.Type)
	assert.Equal(t, "/cdk-bootstrap/hnb659fds/version", param.Default)

	data, err := json.Marshal(tmpl.Rules[BootstrapVersionRule])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Fn::Not"`)
	assert.Contains(t, string(data), `{"Fn::Contains":[["1","2","3","4","5"],{"Ref":"BootstrapVersion"}]}`)
	assert.Contains(t, string(data), "CDK bootstrap stack version 6 required")
}

func TestStack_SkipBootstrapVersionRule(t *testing.T) {
	stack := newTestStack(t, StackProps{SkipBootstrapVersionRule: true})
	stack.AddResource("Uploads", s3.Bucket{})

	tmpl, err := stack.Template()
	require.NoError(t, err)
	assert.Nil(t, tmpl.Parameters)
	assert.Nil(t, tmpl.Rules)
}

func TestConstruct_Handles(t *testing.T) {
	stack := newTestStack(t, StackProps{})
	bucket := stack.AddResource("Uploads", s3.Bucket{})

	assert.Equal(t, "Uploads", bucket.LogicalID())
	assert.Same(t, stack, bucket.Stack())
	assert.Equal(t, intrinsics.Ref{LogicalName: "Uploads"}, bucket.Ref())
	assert.Equal(t, coreinfra.AttrRef{Resource: "Uploads", Attribute: "Arn"}, bucket.Attr("Arn"))
	assert.Equal(t, s3.Bucket{}, bucket.Resource())
	assert.Equal(t, []string{"Uploads"}, stack.LogicalIDs())
}

func TestApp_Synth(t *testing.T) {
	app := NewApp()
	first, err := NewStack(app, "First", StackProps{Env: Environment{Account: "111111111111", Region: "us-east-1"}})
	require.NoError(t, err)
	first.AddResource("Uploads", s3.Bucket{})
	second, err := NewStack(app, "Second", StackProps{})
	require.NoError(t, err)
	second.AddResource("Uploads", s3.Bucket{})

	assembly, err := app.Synth()
	require.NoError(t, err)
	require.Len(t, assembly.Stacks, 2)
	assert.Equal(t, "First", assembly.Stacks[0].Name)
	assert.Equal(t, "aws://111111111111/us-east-1", assembly.Stacks[0].Environment)
	assert.Equal(t, "aws://unknown-account/unknown-region", assembly.Stacks[1].Environment)

	artifact, ok := assembly.Stack("Second")
	require.True(t, ok)
	assert.Contains(t, artifact.Template.Resources, "Uploads")

	_, ok = assembly.Stack("Missing")
	assert.False(t, ok)
}

func TestApp_Synth_Empty(t *testing.T) {
	_, err := NewApp().Synth()
	assert.Error(t, err)
}

func TestApp_Synth_CollectsErrors(t *testing.T) {
	app := NewApp()
	stack, err := NewStack(app, "Broken", StackProps{})
	require.NoError(t, err)
	stack.AddOutput("Out", coreinfra.Output{Value: intrinsics.Ref{LogicalName: "Nope"}})

	_, err = app.Synth()
	assert.ErrorIs(t, err, ErrUnknownReference)
}
