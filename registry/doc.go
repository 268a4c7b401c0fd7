// Package registry deploys the complete registry suite onto one ledger: the
// Identity & Access Authority first, then the credential, attendance and grade
// ledgers bound to it, and finally the single Initialize call that records
// the component addresses with the authority.
//
// # Usage Example
//
//	l := ledger.New(nil, logger)
//	suite, err := registry.Deploy(ctx, l, registry.Options{
//	    Deployer: admin,
//	    Grade:    grade.Config{Strategy: grade.WeightedByMaxScore{}},
//	}, logger)
//	if err != nil {
//	    log.Fatalf("Failed to deploy registry: %v", err)
//	}
//
//	id, _, err := suite.Credentials.IssueCredential(ctx, admin, student, "DEGREE", ref, expiry)
package registry
