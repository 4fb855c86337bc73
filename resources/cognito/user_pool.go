package cognito

// Attribute names accepted by Fn::GetAtt on an AWS::Cognito::UserPool.
const (
	UserPoolAttrArn          = "Arn"
	UserPoolAttrProviderName = "ProviderName"
	UserPoolAttrProviderURL  = "ProviderURL"
	UserPoolAttrUserPoolId   = "UserPoolId"
)

// MFA configuration values.
const (
	MfaOff      = "OFF"
	MfaOn       = "ON"
	MfaOptional = "OPTIONAL"
)

// Second factor identifiers for EnabledMfas.
const (
	MfaSMS   = "SMS_MFA"
	MfaTOTP  = "SOFTWARE_TOKEN_MFA"
	MfaEmail = "EMAIL_OTP"
)

// Recovery mechanism names.
const (
	RecoveryVerifiedEmail       = "verified_email"
	RecoveryVerifiedPhoneNumber = "verified_phone_number"
	RecoveryAdminOnly           = "admin_only"
)

// UserPool represents an AWS::Cognito::UserPool resource.
//
// See: https://docs.aws.amazon.com/AWSCloudFormation/latest/UserGuide/aws-resource-cognito-userpool.html
type UserPool struct {
	UserPoolName                any                                   `json:"UserPoolName,omitempty"`
	AccountRecoverySetting      *UserPool_AccountRecoverySetting      `json:"AccountRecoverySetting,omitempty"`
	AdminCreateUserConfig       *UserPool_AdminCreateUserConfig       `json:"AdminCreateUserConfig,omitempty"`
	AliasAttributes             []any                                 `json:"AliasAttributes,omitempty"`
	AutoVerifiedAttributes      []any                                 `json:"AutoVerifiedAttributes,omitempty"`
	DeletionProtection          any                                   `json:"DeletionProtection,omitempty"`
	EmailVerificationMessage    any                                   `json:"EmailVerificationMessage,omitempty"`
	EmailVerificationSubject    any                                   `json:"EmailVerificationSubject,omitempty"`
	EnabledMfas                 []any                                 `json:"EnabledMfas,omitempty"`
	MfaConfiguration            any                                   `json:"MfaConfiguration,omitempty"`
	Policies                    *UserPool_Policies                    `json:"Policies,omitempty"`
	SmsConfiguration            *UserPool_SmsConfiguration            `json:"SmsConfiguration,omitempty"`
	SmsVerificationMessage      any                                   `json:"SmsVerificationMessage,omitempty"`
	UsernameAttributes          []any                                 `json:"UsernameAttributes,omitempty"`
	UsernameConfiguration       *UserPool_UsernameConfiguration       `json:"UsernameConfiguration,omitempty"`
	VerificationMessageTemplate *UserPool_VerificationMessageTemplate `json:"VerificationMessageTemplate,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r UserPool) ResourceType() string {
	return "AWS::Cognito::UserPool"
}

// UserPool_AccountRecoverySetting orders the recovery mechanisms.
type UserPool_AccountRecoverySetting struct {
	RecoveryMechanisms []UserPool_RecoveryOption `json:"RecoveryMechanisms"`
}

// UserPool_RecoveryOption is one recovery mechanism with its priority.
type UserPool_RecoveryOption struct {
	Name     any `json:"Name"`
	Priority any `json:"Priority"`
}

// UserPool_AdminCreateUserConfig controls self sign-up.
type UserPool_AdminCreateUserConfig struct {
	// AllowAdminCreateUserOnly false means users may sign themselves up.
	AllowAdminCreateUserOnly  any `json:"AllowAdminCreateUserOnly,omitempty"`
	UnusedAccountValidityDays any `json:"UnusedAccountValidityDays,omitempty"`
}

// UserPool_Policies wraps the password policy.
type UserPool_Policies struct {
	PasswordPolicy *UserPool_PasswordPolicy `json:"PasswordPolicy,omitempty"`
}

// UserPool_PasswordPolicy sets password length and character-class requirements.
type UserPool_PasswordPolicy struct {
	MinimumLength                 any `json:"MinimumLength,omitempty"`
	RequireLowercase              any `json:"RequireLowercase,omitempty"`
	RequireNumbers                any `json:"RequireNumbers,omitempty"`
	RequireSymbols                any `json:"RequireSymbols,omitempty"`
	RequireUppercase              any `json:"RequireUppercase,omitempty"`
	TemporaryPasswordValidityDays any `json:"TemporaryPasswordValidityDays,omitempty"`
}

// UserPool_SmsConfiguration names the role Cognito assumes to send SMS.
type UserPool_SmsConfiguration struct {
	ExternalId   any `json:"ExternalId,omitempty"`
	SnsCallerArn any `json:"SnsCallerArn"`
	SnsRegion    any `json:"SnsRegion,omitempty"`
}

// UserPool_UsernameConfiguration sets username case sensitivity.
type UserPool_UsernameConfiguration struct {
	CaseSensitive any `json:"CaseSensitive,omitempty"`
}

// UserPool_VerificationMessageTemplate customizes verification messages.
type UserPool_VerificationMessageTemplate struct {
	DefaultEmailOption any `json:"DefaultEmailOption,omitempty"`
	EmailMessage       any `json:"EmailMessage,omitempty"`
	EmailMessageByLink any `json:"EmailMessageByLink,omitempty"`
	EmailSubject       any `json:"EmailSubject,omitempty"`
	EmailSubjectByLink any `json:"EmailSubjectByLink,omitempty"`
	SmsMessage         any `json:"SmsMessage,omitempty"`
}
