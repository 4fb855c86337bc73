// Package corestack declares the academic agent core stack: the uploads
// bucket, the user pool, and the outputs exporting their identifiers.
package corestack

import (
	"fmt"

	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/internal/construct"
	"github.com/academic-agent/core-infra/internal/patterns"
	"github.com/academic-agent/core-infra/intrinsics"
)

// DefaultStackName is the name the entry point gives the core stack.
const DefaultStackName = "AcademicAgentCoreStack"

// Logical IDs declared by the core stack.
const (
	UploadsBucketID      = "UploadsBucket"
	UserPoolID           = "UserPool"
	UploadsBucketNameOut = "UploadsBucketName"
	UserPoolIDOut        = "UserPoolId"
)

// CoreStack is the declared core stack.
type CoreStack struct {
	*construct.Stack

	Uploads  *patterns.Bucket
	UserPool *patterns.UserPool
}

// NewCoreStack declares the core stack on app.
func NewCoreStack(app *construct.App, id string, props construct.StackProps) (*CoreStack, error) {
	stack, err := construct.NewStack(app, id, props)
	if err != nil {
		return nil, err
	}

	uploads := patterns.NewSecureBucket(stack, UploadsBucketID, patterns.BucketOptions{
		Encryption:        patterns.EncryptionS3Managed,
		BlockPublicAccess: true,
		EnforceSSL:        true,
		Versioned:         true,
	})

	userPool := patterns.NewUserPool(stack, UserPoolID, patterns.UserPoolOptions{
		SelfSignUp:    true,
		SignInAliases: &patterns.SignInAliases{Email: true},
		PasswordPolicy: &patterns.PasswordPolicy{
			MinLength:        12,
			RequireDigits:    intrinsics.BoolPtr(true),
			RequireLowercase: intrinsics.BoolPtr(true),
			RequireUppercase: intrinsics.BoolPtr(true),
		},
		Mfa: patterns.MfaOptional,
	})

	stack.AddOutput(UploadsBucketNameOut, coreinfra.Output{Value: uploads.BucketName()})
	stack.AddOutput(UserPoolIDOut, coreinfra.Output{Value: userPool.UserPoolID()})

	if err := stack.Err(); err != nil {
		return nil, fmt.Errorf("declaring %s: %w", id, err)
	}

	return &CoreStack{Stack: stack, Uploads: uploads, UserPool: userPool}, nil
}
