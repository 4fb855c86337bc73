// Package cognito contains AWS::Cognito resource types.
package cognito
