package account

import (
	"context"
	"fmt"
	"testing"

	"github.com/onsi/gomega"

	"github.com/redfish-tools/usecase-checkers/pkg/checker"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/testutil"
	"github.com/redfish-tools/usecase-checkers/pkg/resource"
)

const (
	accountServiceURI = "/redfish/v1/AccountService"
	accountsURI       = "/redfish/v1/AccountService/Accounts"
)

func newService(existingUsers ...string) *testutil.FakeService {
	svc := testutil.NewFakeService(testutil.Obj(`{"AccountService": {"@odata.id": "/redfish/v1/AccountService"}}`))
	svc.Set(accountServiceURI, testutil.Obj(`{"Accounts": {"@odata.id": "/redfish/v1/AccountService/Accounts"}}`))

	members := make([]any, 0, len(existingUsers))
	for _, name := range existingUsers {
		uri := accountsURI + "/" + name
		members = append(members, map[string]any{"@odata.id": uri})
		svc.Set(uri, resource.Object{
			"@odata.id": uri,
			"Id":        name,
			"UserName":  name,
			"RoleId":    "Administrator",
			"Enabled":   true,
		})
	}
	svc.Set(accountsURI, resource.Object{"Members": members})

	return svc
}

// wireAccountLifecycle makes account POST/PATCH/DELETE calls mutate the
// stored collection the way a real service would.
func wireAccountLifecycle(svc *testutil.FakeService, createEnabled bool) {
	svc.OnPost = func(uri string, body any) {
		if uri != accountsURI {
			return
		}
		b := body.(map[string]any)
		accountURI := accountsURI + "/" + b["UserName"].(string)
		svc.Set(accountURI, resource.Object{
			"@odata.id": accountURI,
			"Id":        b["UserName"],
			"UserName":  b["UserName"],
			"RoleId":    b["RoleId"],
			"Enabled":   createEnabled,
		})
		coll := svc.Resources[accountsURI]
		coll["Members"] = append(coll["Members"].([]any), map[string]any{"@odata.id": accountURI})
	}
	svc.OnPatch = func(uri string, body any) {
		account, ok := svc.Resources[uri]
		if !ok {
			return
		}
		for key, value := range body.(map[string]any) {
			account[key] = value
		}
	}
	svc.OnDelete = func(uri string) {
		delete(svc.Resources, uri)
		coll := svc.Resources[accountsURI]
		members := coll["Members"].([]any)
		kept := make([]any, 0, len(members))
		for _, m := range members {
			if m.(map[string]any)["@odata.id"] != uri {
				kept = append(kept, m)
			}
		}
		coll["Members"] = kept
	}
}

// sessionFactory accepts exactly the given credentials.
func sessionFactory(svc *testutil.FakeService, username, password string) checker.SessionFactory {
	return func(_ context.Context, u, p string) (checker.Service, error) {
		if u == username && p == password {
			return svc, nil
		}

		return nil, fmt.Errorf("authentication rejected for %q", u)
	}
}

func TestFullAccountLifecycle(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService("root")
	wireAccountLifecycle(svc, true)
	target := testutil.NewTarget(svc, false)
	target.NewSession = sessionFactory(svc, "testuser0", fallbackPasswords[0])

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusPass))

	// The account is created enabled, so the enable step is a skip.
	for _, r := range target.Results.ByCategory(Category) {
		if r.Test == testEnableUser {
			g.Expect(r.Status).To(gomega.Equal(result.StatusSkip))
		}
	}

	// Role cycle patched all three roles, and no account is left behind.
	g.Expect(svc.Patches).To(gomega.HaveLen(3))
	g.Expect(svc.Resources).ToNot(gomega.HaveKey(accountsURI + "/testuser0"))
}

func TestDisabledAccountIsEnabled(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService("root")
	wireAccountLifecycle(svc, false)
	target := testutil.NewTarget(svc, false)
	target.NewSession = sessionFactory(svc, "testuser0", fallbackPasswords[0])

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusPass))
	g.Expect(svc.Patches[0].Body).To(gomega.HaveKeyWithValue("Enabled", true))
}

func TestTakenUsernameFallsBack(t *testing.T) {
	g := gomega.NewWithT(t)

	// testuser0 already exists; the checker must move to the next
	// candidate instead of failing the create.
	svc := newService("root", "testuser0")
	wireAccountLifecycle(svc, true)
	target := testutil.NewTarget(svc, false)
	target.NewSession = sessionFactory(svc, "testuser1", fallbackPasswords[0])

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusPass))
	g.Expect(svc.Posts[0].Body).To(gomega.HaveKeyWithValue("UserName", "testuser1"))
}

func TestCreateRejectedEverywhereFailsAndSkipsRest(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService("root")
	svc.PostErr = map[string]error{accountsURI: fmt.Errorf("password does not meet requirements")}
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusFail))

	skips := 0
	for _, r := range target.Results.ByCategory(Category) {
		if r.Status == result.StatusSkip {
			skips++
		}
	}
	g.Expect(skips).To(gomega.Equal(4))
}

func TestWrongPasswordAcceptedFails(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService("root")
	wireAccountLifecycle(svc, true)
	target := testutil.NewTarget(svc, false)
	// Factory that accepts anything, simulating a service that ignores
	// the password.
	target.NewSession = func(context.Context, string, string) (checker.Service, error) {
		return svc, nil
	}

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())

	var messages []string
	for _, r := range target.Results.ByCategory(Category) {
		if r.Status == result.StatusFail {
			messages = append(messages, r.Message)
		}
	}
	g.Expect(messages).To(gomega.ContainElement(gomega.ContainSubstring("invalid credentials")))
}

func TestCleanupRunsWhenDeleteFails(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService("root")
	wireAccountLifecycle(svc, true)
	target := testutil.NewTarget(svc, false)
	target.NewSession = sessionFactory(svc, "testuser0", fallbackPasswords[0])
	svc.DeleteErr = map[string]error{accountsURI + "/testuser0": fmt.Errorf("boom")}

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusFail))

	var warnings []string
	for _, r := range target.Results.ByCategory(Category) {
		if r.Status == result.StatusWarn {
			warnings = append(warnings, r.Message)
		}
	}
	g.Expect(warnings).To(gomega.ContainElement(gomega.ContainSubstring("manual removal")))
}

func TestNoAccountServiceSkipsAll(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := testutil.NewFakeService(testutil.Obj(`{}`))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Len()).To(gomega.Equal(6))
	for _, r := range target.Results.Results() {
		g.Expect(r.Status).To(gomega.Equal(result.StatusSkip))
	}
}
