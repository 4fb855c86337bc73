package patterns

import (
	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/internal/construct"
	"github.com/academic-agent/core-infra/intrinsics"
	"github.com/academic-agent/core-infra/resources/cognito"
	"github.com/academic-agent/core-infra/resources/iam"
)

const (
	defaultVerificationMessage = "The verification code to your new account is {####}"
	defaultVerificationSubject = "Verify your new account"
	defaultMinPasswordLength   = 8
)

// Mfa is the multi-factor requirement of a user pool.
type Mfa string

const (
	// MfaOff disables multi-factor authentication.
	MfaOff Mfa = cognito.MfaOff
	// MfaOptional lets each user opt in to a second factor.
	MfaOptional Mfa = cognito.MfaOptional
	// MfaRequired requires a second factor for every user.
	MfaRequired Mfa = cognito.MfaOn
)

// MfaSecondFactor selects the enabled second factors.
type MfaSecondFactor struct {
	SMS bool
	OTP bool
}

// SignInAliases selects how users sign in. With Username unset the email and
// phone aliases become the username itself.
type SignInAliases struct {
	Username          bool
	Email             bool
	Phone             bool
	PreferredUsername bool
}

// AutoVerify selects the attributes Cognito verifies on sign-up.
type AutoVerify struct {
	Email bool
	Phone bool
}

// PasswordPolicy constrains user passwords. Nil Require* fields default to true.
type PasswordPolicy struct {
	MinLength        int
	RequireDigits    *bool
	RequireLowercase *bool
	RequireUppercase *bool
	RequireSymbols   *bool
	// TempPasswordValidityDays is left to the service default when zero.
	TempPasswordValidityDays int
}

// AccountRecovery selects the recovery mechanisms and their order.
type AccountRecovery int

const (
	// RecoveryPhoneWithoutMFAAndEmail prefers a verified phone, then email.
	RecoveryPhoneWithoutMFAAndEmail AccountRecovery = iota
	// RecoveryEmailAndPhoneWithoutMFA prefers a verified email, then phone.
	RecoveryEmailAndPhoneWithoutMFA
	// RecoveryEmailOnly recovers through a verified email only.
	RecoveryEmailOnly
	// RecoveryPhoneOnlyWithoutMFA recovers through a verified phone only.
	RecoveryPhoneOnlyWithoutMFA
	// RecoveryNone leaves recovery to administrators.
	RecoveryNone
)

// UserPoolOptions describes a user pool by intent.
type UserPoolOptions struct {
	UserPoolName    string
	SelfSignUp      bool
	SignInAliases   *SignInAliases
	AutoVerify      *AutoVerify
	PasswordPolicy  *PasswordPolicy
	Mfa             Mfa
	MfaSecondFactor *MfaSecondFactor
	AccountRecovery AccountRecovery
	// DisableSmsRole stops the SMS sender role from being declared even
	// when SMS is needed.
	DisableSmsRole bool
	RemovalPolicy  construct.RemovalPolicy
}

// UserPool is a declared user pool and its SMS sender role, if any.
type UserPool struct {
	Resource *construct.Construct
	SmsRole  *construct.Construct
}

// UserPoolID returns a Ref resolving to the pool id.
func (p *UserPool) UserPoolID() intrinsics.Ref {
	return p.Resource.Ref()
}

// UserPoolArn returns a Fn::GetAtt resolving to the pool ARN.
func (p *UserPool) UserPoolArn() coreinfra.AttrRef {
	return p.Resource.Attr(cognito.UserPoolAttrArn)
}

// ProviderURL returns a Fn::GetAtt resolving to the pool's issuer URL.
func (p *UserPool) ProviderURL() coreinfra.AttrRef {
	return p.Resource.Attr(cognito.UserPoolAttrProviderURL)
}

// NewUserPool declares a user pool under id. When SMS is needed the sender
// role is declared as <id>SmsRole. RemovalPolicy defaults to Retain.
func NewUserPool(stack *construct.Stack, id string, opts UserPoolOptions) *UserPool {
	aliases := SignInAliases{Username: true}
	if opts.SignInAliases != nil {
		aliases = *opts.SignInAliases
	}
	verify := AutoVerify{Email: aliases.Email, Phone: aliases.Phone}
	if opts.AutoVerify != nil {
		verify = *opts.AutoVerify
	}
	mfa := opts.Mfa
	if mfa == "" {
		mfa = MfaOff
	}
	factors := MfaSecondFactor{SMS: true}
	if opts.MfaSecondFactor != nil {
		factors = *opts.MfaSecondFactor
	}

	pool := cognito.UserPool{
		AdminCreateUserConfig: &cognito.UserPool_AdminCreateUserConfig{
			AllowAdminCreateUserOnly: !opts.SelfSignUp,
		},
		EmailVerificationMessage: defaultVerificationMessage,
		EmailVerificationSubject: defaultVerificationSubject,
		SmsVerificationMessage:   defaultVerificationMessage,
		VerificationMessageTemplate: &cognito.UserPool_VerificationMessageTemplate{
			DefaultEmailOption: "CONFIRM_WITH_CODE",
			EmailMessage:       defaultVerificationMessage,
			EmailSubject:       defaultVerificationSubject,
			SmsMessage:         defaultVerificationMessage,
		},
		Policies: &cognito.UserPool_Policies{
			PasswordPolicy: passwordPolicy(opts.PasswordPolicy),
		},
		AccountRecoverySetting: accountRecovery(opts.AccountRecovery),
	}
	if opts.UserPoolName != "" {
		pool.UserPoolName = opts.UserPoolName
	}

	if aliases.Username {
		pool.AliasAttributes = aliasAttributes(aliases)
	} else {
		pool.UsernameAttributes = usernameAttributes(aliases)
	}
	pool.AutoVerifiedAttributes = verifiedAttributes(verify)

	pool.MfaConfiguration = string(mfa)
	if mfa != MfaOff {
		pool.EnabledMfas = enabledMfas(factors)
	}

	out := &UserPool{}
	needsSms := (mfa != MfaOff && factors.SMS) || verify.Phone || aliases.Phone
	if needsSms && !opts.DisableSmsRole {
		externalID := stack.Name() + id
		out.SmsRole = stack.AddResource(id+"SmsRole", smsRole(externalID))
		pool.SmsConfiguration = &cognito.UserPool_SmsConfiguration{
			ExternalId:   externalID,
			SnsCallerArn: out.SmsRole.Attr(iam.RoleAttrArn),
		}
	}

	removal := opts.RemovalPolicy
	if removal == "" {
		removal = construct.RemovalRetain
	}
	out.Resource = stack.AddResource(id, pool, construct.WithRemovalPolicy(removal))
	return out
}

func passwordPolicy(p *PasswordPolicy) *cognito.UserPool_PasswordPolicy {
	if p == nil {
		p = &PasswordPolicy{}
	}
	minLength := p.MinLength
	if minLength == 0 {
		minLength = defaultMinPasswordLength
	}
	policy := &cognito.UserPool_PasswordPolicy{
		MinimumLength:    minLength,
		RequireLowercase: orTrue(p.RequireLowercase),
		RequireNumbers:   orTrue(p.RequireDigits),
		RequireSymbols:   orTrue(p.RequireSymbols),
		RequireUppercase: orTrue(p.RequireUppercase),
	}
	if p.TempPasswordValidityDays > 0 {
		policy.TemporaryPasswordValidityDays = p.TempPasswordValidityDays
	}
	return policy
}

func orTrue(b *bool) bool {
	return b == nil || *b
}

func aliasAttributes(a SignInAliases) []any {
	var attrs []any
	if a.Email {
		attrs = append(attrs, "email")
	}
	if a.Phone {
		attrs = append(attrs, "phone_number")
	}
	if a.PreferredUsername {
		attrs = append(attrs, "preferred_username")
	}
	return attrs
}

func usernameAttributes(a SignInAliases) []any {
	var attrs []any
	if a.Email {
		attrs = append(attrs, "email")
	}
	if a.Phone {
		attrs = append(attrs, "phone_number")
	}
	return attrs
}

func verifiedAttributes(v AutoVerify) []any {
	var attrs []any
	if v.Email {
		attrs = append(attrs, "email")
	}
	if v.Phone {
		attrs = append(attrs, "phone_number")
	}
	return attrs
}

func enabledMfas(f MfaSecondFactor) []any {
	var mfas []any
	if f.SMS {
		mfas = append(mfas, cognito.MfaSMS)
	}
	if f.OTP {
		mfas = append(mfas, cognito.MfaTOTP)
	}
	return mfas
}

func accountRecovery(r AccountRecovery) *cognito.UserPool_AccountRecoverySetting {
	var names []string
	switch r {
	case RecoveryPhoneWithoutMFAAndEmail:
		names = []string{cognito.RecoveryVerifiedPhoneNumber, cognito.RecoveryVerifiedEmail}
	case RecoveryEmailAndPhoneWithoutMFA:
		names = []string{cognito.RecoveryVerifiedEmail, cognito.RecoveryVerifiedPhoneNumber}
	case RecoveryEmailOnly:
		names = []string{cognito.RecoveryVerifiedEmail}
	case RecoveryPhoneOnlyWithoutMFA:
		names = []string{cognito.RecoveryVerifiedPhoneNumber}
	case RecoveryNone:
		names = []string{cognito.RecoveryAdminOnly}
	default:
		return nil
	}

	setting := &cognito.UserPool_AccountRecoverySetting{}
	for i, name := range names {
		setting.RecoveryMechanisms = append(setting.RecoveryMechanisms, cognito.UserPool_RecoveryOption{
			Name:     name,
			Priority: i + 1,
		})
	}
	return setting
}

// smsRole is assumed by Cognito to publish SMS through SNS.
func smsRole(externalID string) iam.Role {
	assume := intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
		Effect:    "Allow",
		Principal: intrinsics.ServicePrincipal{"cognito-idp.amazonaws.com"},
		Action:    "sts:AssumeRole",
		Condition: intrinsics.Json{
			intrinsics.StringEquals: intrinsics.Json{"sts:ExternalId": externalID},
		},
	})

	publish := intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
		Effect:   "Allow",
		Action:   "sns:Publish",
		Resource: "*",
	})

	return iam.Role{
		AssumeRolePolicyDocument: assume,
		Policies: []iam.Role_Policy{{
			PolicyName:     "sns-publish",
			PolicyDocument: publish,
		}},
	}
}
