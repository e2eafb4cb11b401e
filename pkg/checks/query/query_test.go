package query

import (
	"context"
	"testing"

	"github.com/onsi/gomega"

	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/testutil"
	"github.com/redfish-tools/usecase-checkers/pkg/resource"
)

const (
	rootURI     = "/redfish/v1/"
	asURI       = "/redfish/v1/AccountService"
	ssURI       = "/redfish/v1/SessionService"
	rolesURI    = "/redfish/v1/AccountService/Roles"
	adminURI    = "/redfish/v1/AccountService/Roles/Administrator"
	operatorURI = "/redfish/v1/AccountService/Roles/Operator"
	readOnlyURI = "/redfish/v1/AccountService/Roles/ReadOnly"
	chassisURI  = "/redfish/v1/Chassis"
	systemsURI  = "/redfish/v1/Systems"
	managersURI = "/redfish/v1/Managers"
)

func newRoot(features string) resource.Object {
	return testutil.Obj(`{
		"ProtocolFeaturesSupported": ` + features + `,
		"AccountService": {"@odata.id": "/redfish/v1/AccountService"},
		"SessionService": {"@odata.id": "/redfish/v1/SessionService"},
		"Chassis": {"@odata.id": "/redfish/v1/Chassis"},
		"Systems": {"@odata.id": "/redfish/v1/Systems"},
		"Managers": {"@odata.id": "/redfish/v1/Managers"}
	}`)
}

const allFeatures = `{
	"FilterQuery": true,
	"SelectQuery": true,
	"OnlyMemberQuery": true,
	"ExpandQuery": {"ExpandAll": true, "NoLinks": true, "Links": true, "Levels": true}
}`

// setRoles stores the role collection with three members plus the member
// payloads themselves.
func setRoles(svc *testutil.FakeService) {
	svc.Set(rolesURI, testutil.Obj(`{
		"@odata.id": "/redfish/v1/AccountService/Roles",
		"Members": [
			{"@odata.id": "/redfish/v1/AccountService/Roles/Administrator"},
			{"@odata.id": "/redfish/v1/AccountService/Roles/Operator"},
			{"@odata.id": "/redfish/v1/AccountService/Roles/ReadOnly"}
		]
	}`))
	svc.Set(adminURI, testutil.Obj(`{
		"@odata.id": "/redfish/v1/AccountService/Roles/Administrator",
		"@odata.type": "#Role.v1_2_4.Role",
		"Id": "Administrator",
		"Name": "Administrator Role",
		"Description": "Admin User Role",
		"AssignedPrivileges": ["Login", "ConfigureManager", "ConfigureUsers", "ConfigureSelf", "ConfigureComponents"]
	}`))
	svc.Set(operatorURI, testutil.Obj(`{"@odata.id": "/redfish/v1/AccountService/Roles/Operator", "Id": "Operator"}`))
	svc.Set(readOnlyURI, testutil.Obj(`{"@odata.id": "/redfish/v1/AccountService/Roles/ReadOnly", "Id": "ReadOnly"}`))
	svc.Set(asURI, testutil.Obj(`{
		"@odata.id": "/redfish/v1/AccountService",
		"Roles": {"@odata.id": "/redfish/v1/AccountService/Roles"}
	}`))
}

// setFilterResponses stores the collection payloads the checker requests
// for each filter expression.
func setFilterResponses(svc *testutil.FakeService) {
	one := testutil.Obj(`{"Members": [{"@odata.id": "/redfish/v1/AccountService/Roles/Administrator"}]}`)
	two := testutil.Obj(`{"Members": [
		{"@odata.id": "/redfish/v1/AccountService/Roles/Operator"},
		{"@odata.id": "/redfish/v1/AccountService/Roles/ReadOnly"}
	]}`)
	svc.Set(withQuery(rolesURI, "$filter", "Id eq 'Administrator'"), one)
	svc.Set(withQuery(rolesURI, "$filter", "not (Id eq 'Administrator')"), two)
	svc.Set(withQuery(rolesURI, "$filter", "Id eq 'Administrator' or Id eq 'ReadOnly'"), two)
}

func setSelectResponse(svc *testutil.FakeService) {
	svc.Set(withQuery(adminURI, "$select", "Name,AssignedPrivileges"), testutil.Obj(`{
		"@odata.id": "/redfish/v1/AccountService/Roles/Administrator",
		"@odata.type": "#Role.v1_2_4.Role",
		"Name": "Administrator Role",
		"AssignedPrivileges": ["Login", "ConfigureManager", "ConfigureUsers", "ConfigureSelf", "ConfigureComponents"]
	}`))
}

// expandedRoot builds a service root response where the Systems reference
// and the Links.Sessions reference are expanded per the flags.
func expandedRoot(sub, links bool) resource.Object {
	systems := `{"@odata.id": "/redfish/v1/Systems"}`
	if sub {
		systems = `{"@odata.id": "/redfish/v1/Systems", "Members": []}`
	}
	sessions := `{"@odata.id": "/redfish/v1/SessionService/Sessions"}`
	if links {
		sessions = `{"@odata.id": "/redfish/v1/SessionService/Sessions", "Members": []}`
	}

	return testutil.Obj(`{
		"@odata.id": "/redfish/v1/",
		"Systems": ` + systems + `,
		"Links": {"Sessions": ` + sessions + `}
	}`)
}

func setExpandResponses(svc *testutil.FakeService) {
	for _, variant := range expandVariants {
		svc.Set(withQuery(rootURI, "$expand", variant.expr), expandedRoot(variant.sub, variant.links))
	}
}

func setOnlyResponses(svc *testutil.FakeService) {
	// Singular resources have no ?only payload, so those requests error as
	// a conformant service would reject them.
	svc.Set(chassisURI, testutil.Obj(`{
		"@odata.id": "/redfish/v1/Chassis",
		"Members": [{"@odata.id": "/redfish/v1/Chassis/1U"}]
	}`))
	svc.Set(chassisURI+"?only", testutil.Obj(`{"@odata.id": "/redfish/v1/Chassis/1U", "Id": "1U"}`))
	svc.Set(systemsURI, testutil.Obj(`{
		"@odata.id": "/redfish/v1/Systems",
		"Members": [
			{"@odata.id": "/redfish/v1/Systems/1"},
			{"@odata.id": "/redfish/v1/Systems/2"}
		]
	}`))
	svc.Set(systemsURI+"?only", testutil.Obj(`{
		"@odata.id": "/redfish/v1/Systems",
		"Members": [
			{"@odata.id": "/redfish/v1/Systems/1"},
			{"@odata.id": "/redfish/v1/Systems/2"}
		]
	}`))
	svc.Set(managersURI, testutil.Obj(`{
		"@odata.id": "/redfish/v1/Managers",
		"Members": [{"@odata.id": "/redfish/v1/Managers/BMC"}]
	}`))
	svc.Set(managersURI+"?only", testutil.Obj(`{"@odata.id": "/redfish/v1/Managers/BMC", "Id": "BMC"}`))
}

func newService() *testutil.FakeService {
	svc := testutil.NewFakeService(newRoot(allFeatures))
	setRoles(svc)
	setFilterResponses(svc)
	setSelectResponse(svc)
	setExpandResponses(svc)
	setOnlyResponses(svc)

	return svc
}

func TestConformantServicePasses(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusPass))
	// Four filter checks, one select, six expand variants with two
	// references each, and five only checks.
	g.Expect(target.Results.Len()).To(gomega.Equal(22))
	g.Expect(target.Results.Counts().Fail).To(gomega.BeZero())
	g.Expect(target.Results.Counts().Skip).To(gomega.BeZero())
}

func TestNoAdvertisedFeaturesYieldsNoResults(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := testutil.NewFakeService(testutil.Obj(`{"AccountService": {"@odata.id": "/redfish/v1/AccountService"}}`))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Len()).To(gomega.BeZero())
}

func TestDisabledExpandYieldsNoExpandResults(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := testutil.NewFakeService(newRoot(`{"FilterQuery": true, "ExpandQuery": false}`))
	setRoles(svc)
	setFilterResponses(svc)
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	for _, r := range target.Results.Results() {
		g.Expect(r.Test).ToNot(gomega.Equal(testExpand))
	}
}

func TestFilterCountMismatchFails(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	svc.Set(withQuery(rolesURI, "$filter", "Id eq 'Administrator'"), testutil.Obj(`{"Members": [
		{"@odata.id": "/redfish/v1/AccountService/Roles/Administrator"},
		{"@odata.id": "/redfish/v1/AccountService/Roles/Operator"}
	]}`))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusFail))

	var message string
	for _, r := range target.Results.ByCategory(Category) {
		if r.Status == result.StatusFail {
			message = r.Message
		}
	}
	g.Expect(message).To(gomega.ContainSubstring("expected to return 1 member(s); received 2"))
}

func TestMemberFilterAcceptedFails(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	svc.Set(withQuery(adminURI, "$filter", "Id eq 'Administrator'"), testutil.Obj(`{"Id": "Administrator"}`))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusFail))

	var message string
	for _, r := range target.Results.Results() {
		if r.Test == testFilter && r.Status == result.StatusFail {
			message = r.Message
		}
	}
	g.Expect(message).To(gomega.ContainSubstring("expected to result in an error, but succeeded"))
}

func TestSelectExtraPropertyFails(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	svc.Set(withQuery(adminURI, "$select", "Name,AssignedPrivileges"), testutil.Obj(`{
		"@odata.id": "/redfish/v1/AccountService/Roles/Administrator",
		"@odata.type": "#Role.v1_2_4.Role",
		"Name": "Administrator Role",
		"AssignedPrivileges": ["Login", "ConfigureManager", "ConfigureUsers", "ConfigureSelf", "ConfigureComponents"],
		"Description": "Admin User Role"
	}`))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())

	var message string
	for _, r := range target.Results.Results() {
		if r.Test == testSelect && r.Status == result.StatusFail {
			message = r.Message
		}
	}
	g.Expect(message).To(gomega.ContainSubstring("extra property 'Description'"))
}

func TestUnsupportedExpandTermsSkip(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := testutil.NewFakeService(newRoot(`{"ExpandQuery": {"ExpandAll": true}}`))
	svc.Set(withQuery(rootURI, "$expand", "*"), expandedRoot(true, true))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusPass))
	// Only $expand=* runs; the other five variants are skipped.
	g.Expect(target.Results.Counts().Skip).To(gomega.Equal(5))
	g.Expect(target.Results.Counts().Pass).To(gomega.Equal(2))
}

func TestUnexpandedReferenceFails(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	svc.Set(withQuery(rootURI, "$expand", "*"), expandedRoot(false, true))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())

	var message string
	for _, r := range target.Results.Results() {
		if r.Test == testExpand && r.Status == result.StatusFail {
			message = r.Message
		}
	}
	g.Expect(message).To(gomega.Equal("Expected to expand the reference 'Systems'."))
}

func TestOnlyAcceptedOnSingularFails(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	svc.Set(asURI+"?only", testutil.Obj(`{"@odata.id": "/redfish/v1/AccountService"}`))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())

	var message string
	for _, r := range target.Results.Results() {
		if r.Test == testOnly && r.Status == result.StatusFail {
			message = r.Message
		}
	}
	g.Expect(message).To(gomega.ContainSubstring("expected to result in an error"))
}

func TestOnlyReturnsWrongMemberFails(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	svc.Set(chassisURI+"?only", testutil.Obj(`{"@odata.id": "/redfish/v1/Chassis/2U", "Id": "2U"}`))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())

	var message string
	for _, r := range target.Results.Results() {
		if r.Test == testOnly && r.Status == result.StatusFail {
			message = r.Message
		}
	}
	g.Expect(message).To(gomega.ContainSubstring("expected the only collection member"))
}
