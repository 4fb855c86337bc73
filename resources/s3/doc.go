// Package s3 contains AWS::S3 resource types.
//
// Scalar properties are typed any so they accept literals or intrinsics
// (Ref, Sub, GetAtt). Nil properties are omitted from the template; a
// boolean false is kept.
package s3
