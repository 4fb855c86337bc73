package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

// Pseudo-parameters resolve to values of the stack being deployed.
//
//	ExternalId: Sub{String: "${AWS::StackName}-sms"}
//	Resource:   Join{Delimiter: ":", Values: Any("arn", AWS_PARTITION, "sns", AWS_REGION)}
var (
	// AWS_ACCOUNT_ID is the account the stack is created in.
	AWS_ACCOUNT_ID = intrinsics.AWS_ACCOUNT_ID

	// AWS_NO_VALUE removes the property when returned from Fn::If.
	AWS_NO_VALUE = intrinsics.AWS_NO_VALUE

	// AWS_PARTITION is aws, aws-cn or aws-us-gov.
	AWS_PARTITION = intrinsics.AWS_PARTITION

	// AWS_REGION is the region the stack is created in.
	AWS_REGION = intrinsics.AWS_REGION

	// AWS_STACK_ID is the ID of the stack.
	AWS_STACK_ID = intrinsics.AWS_STACK_ID

	// AWS_STACK_NAME is the name of the stack.
	AWS_STACK_NAME = intrinsics.AWS_STACK_NAME

	// AWS_URL_SUFFIX is the domain suffix, usually amazonaws.com.
	AWS_URL_SUFFIX = intrinsics.AWS_URL_SUFFIX
)
