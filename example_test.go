package coreinfra_test

import (
	"fmt"

	"github.com/academic-agent/core-infra/internal/construct"
	"github.com/academic-agent/core-infra/internal/corestack"
)

func Example() {
	app := construct.NewApp()
	stack, err := corestack.NewCoreStack(app, "AcademicAgentCoreStack", construct.StackProps{})
	if err != nil {
		fmt.Println(err)
		return
	}
	tmpl, err := stack.Template()
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(tmpl.Resources["UploadsBucket"].Type)
	fmt.Println(tmpl.Resources["UserPool"].Type)
	fmt.Println(len(tmpl.Outputs))
	// Output:
	// AWS::S3::Bucket
	// AWS::Cognito::UserPool
	// 2
}
