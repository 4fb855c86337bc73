package construct

import (
	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/intrinsics"
)

const (
	// BootstrapVersionParameter is the SSM-backed parameter holding the
	// deployed bootstrap stack version.
	BootstrapVersionParameter = "BootstrapVersion"
	// BootstrapVersionRule asserts the bootstrap stack is recent enough.
	BootstrapVersionRule = "CheckBootstrapVersion"

	bootstrapQualifier      = "hnb659fds"
	bootstrapVersionSSMPath = "/cdk-bootstrap/" + bootstrapQualifier + "/version"
)

// unsupportedBootstrapVersions are bootstrap stack versions too old to deploy
// from.
var unsupportedBootstrapVersions = []any{"1", "2", "3", "4", "5"}

func addBootstrapVersionRule(s *Stack) {
	s.AddParameter(BootstrapVersionParameter, coreinfra.Parameter{
		Type:        "AWS::SSM::Parameter::Value<String>",
		Default:     bootstrapVersionSSMPath,
		Description: "Version of the CDK Bootstrap resources in this environment, automatically retrieved from SSM Parameter Store. [cdk:skip]",
	})
	s.AddRule(BootstrapVersionRule, intrinsics.TemplateRule{
		Assertions: []intrinsics.Assertion{{
			Assert: intrinsics.Not{Condition: intrinsics.Contains{
				Values: unsupportedBootstrapVersions,
				Value:  intrinsics.Ref{LogicalName: BootstrapVersionParameter},
			}},
			AssertDescription: "CDK bootstrap stack version 6 required. Please run 'cdk bootstrap' with a recent version of the CDK CLI.",
		}},
	})
}
