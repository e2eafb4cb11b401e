// Package account implements the account management use case: creating a
// test account, verifying its credentials and role changes, and deleting
// it. The checker is the only writer of account state during a run and
// cleans up after itself even when a step fails.
package account

import (
	"context"
	"fmt"

	"github.com/redfish-tools/usecase-checkers/pkg/checker"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/checks/shared"
)

const (
	Category = "Account Management"

	testUserCount       = "User Count"
	testAddUser         = "Add User"
	testEnableUser      = "Enable User"
	testCredentialCheck = "Credential Check"
	testChangeRole      = "Change Role"
	testDeleteUser      = "Delete User"
)

// Passwords tried in order when creating the test account; services with
// complexity rules we cannot detect may reject the simpler ones.
var fallbackPasswords = []string{"hUPgd9Z4", "7jIl3dn!kd0Fql", "m5Ljed3!n0olvdS*m0kmWER15!"}

// usernameCandidates bounds how many fallback usernames are tried when the
// service rejects a name, e.g. for an undetected collision.
const usernameCandidates = 3

// Checker drives the account management use case.
type Checker struct {
	checker.Base
}

// New creates the account management checker.
func New() *Checker {
	return &Checker{
		Base: checker.Base{
			CheckerID:          "account.management",
			CheckerCategory:    Category,
			CheckerDescription: "Verifies accounts can be created, authenticated, modified, and deleted",
			TestCases: []checker.TestCase{
				{
					Name:        testUserCount,
					Description: "Verifies the user list is not empty",
					Details:     "Locates the account collection and performs GET on all members.",
				},
				{
					Name:        testAddUser,
					Description: "Verifies that a user can be added",
					Details:     "Performs a POST on the account collection and verifies the new user matches the specified criteria.",
				},
				{
					Name:        testEnableUser,
					Description: "Verifies that a user can be enabled",
					Details:     "Performs a PATCH on the new account to enable it and verifies the account was enabled.",
				},
				{
					Name:        testCredentialCheck,
					Description: "Verifies the credentials of the new user are correctly enforced",
					Details:     "Opens a session as the new user, then attempts a session with an incorrect password and verifies it is rejected.",
				},
				{
					Name:        testChangeRole,
					Description: "Verifies that user roles can be modified",
					Details:     "Performs PATCH operations on the new account to change its role and verifies each change.",
				},
				{
					Name:        testDeleteUser,
					Description: "Verifies that a user can be deleted",
					Details:     "Performs a DELETE on the new account and verifies the user is gone from the account collection.",
				},
			},
		},
	}
}

// testUser is the state of the account created for this run.
type testUser struct {
	username string
	password string
	uri      string
	deleted  bool
}

func (c *Checker) Run(ctx context.Context, t *checker.Target) error {
	root := t.Service.Root()
	ref, ok := root.Object("AccountService")
	if !ok {
		shared.SkipAll(t, Category, c.Tests(), "Service does not contain an account service.")

		return nil
	}
	serviceURI, ok := ref.ODataID()
	if !ok {
		shared.SkipAll(t, Category, c.Tests(), "The account service reference has no '@odata.id'.")

		return nil
	}

	accountService, err := t.Service.Get(ctx, serviceURI)
	if err != nil {
		shared.SkipAll(t, Category, c.Tests(), fmt.Sprintf("Failed to get the account service (%v).", err))

		return nil
	}
	accountsRef, ok := accountService.Object("Accounts")
	if !ok {
		shared.SkipAll(t, Category, c.Tests(), "The account service does not contain an account collection.")

		return nil
	}
	collectionURI, _ := accountsRef.ODataID()

	existing := c.userCountTest(ctx, t, collectionURI)

	user := c.addUserTest(ctx, t, collectionURI, existing)
	if user == nil {
		skipMessage := fmt.Sprintf("Failure of the '%s' test prevents performing this test.", testAddUser)
		for _, test := range []string{testEnableUser, testCredentialCheck, testChangeRole, testDeleteUser} {
			t.Results.Add(Category, test, "", result.StatusSkip, skipMessage)
		}

		return nil
	}
	defer c.cleanup(ctx, t, user)

	c.enableUserTest(ctx, t, user)
	c.credentialCheckTest(ctx, t, user)
	c.changeRoleTest(ctx, t, user)
	c.deleteUserTest(ctx, t, collectionURI, user)

	return nil
}

// userCountTest counts the accounts and returns their usernames.
func (c *Checker) userCountTest(ctx context.Context, t *checker.Target, collectionURI string) map[string]bool {
	operation := "Counting the members of the account collection"
	t.Logger().Infow(operation)
	existing := make(map[string]bool)

	uris, err := t.Service.Members(ctx, collectionURI)
	if err != nil {
		t.Results.Add(Category, testUserCount, operation, result.StatusFail,
			fmt.Sprintf("Failed to get the user list (%v).", err))

		return existing
	}

	count := 0
	for _, uri := range uris {
		obj, err := t.Service.Get(ctx, uri)
		if err != nil {
			t.Logger().Debugw("failed to get account", "uri", uri, "error", err)

			continue
		}
		count++
		if name, ok := obj.String("UserName"); ok && name != "" {
			existing[name] = true
		}
	}

	if count == 0 {
		t.Results.Add(Category, testUserCount, operation, result.StatusFail, "No users were found.")
	} else {
		t.Results.Add(Category, testUserCount, operation, result.StatusPass, "")
	}

	return existing
}

// addUserTest creates the test account, cycling fallback usernames and
// passwords until the service accepts one. Returns nil when no combination
// was accepted or the created account could not be verified.
func (c *Checker) addUserTest(ctx context.Context, t *checker.Target, collectionURI string, existing map[string]bool) *testUser {
	candidates := freeUsernames(existing, usernameCandidates)

	var lastErr error
	for _, username := range candidates {
		operation := fmt.Sprintf("Creating new user '%s' as 'Administrator'", username)
		t.Logger().Infow(operation)

		for _, password := range fallbackPasswords {
			body := map[string]any{
				"UserName": username,
				"Password": password,
				"RoleId":   "Administrator",
			}
			if err := t.Service.Post(ctx, collectionURI, body); err != nil {
				lastErr = err

				continue
			}

			uri := c.verifyUser(ctx, t, collectionURI, username, "Administrator", nil)
			if uri == "" {
				t.Results.Add(Category, testAddUser, operation, result.StatusFail,
					fmt.Sprintf("Failed to find user '%s' with the role 'Administrator' after successful POST.", username))

				return nil
			}
			t.Results.Add(Category, testAddUser, operation, result.StatusPass, "")

			return &testUser{username: username, password: password, uri: uri}
		}
	}

	operation := fmt.Sprintf("Creating new user '%s' as 'Administrator'", candidates[len(candidates)-1])
	t.Results.Add(Category, testAddUser, operation, result.StatusFail,
		fmt.Sprintf("Failed to create a test user after %d username and %d password candidates (%v).",
			len(candidates), len(fallbackPasswords), lastErr))

	return nil
}

// verifyUser scans the account collection for a user matching the given
// criteria and returns its URI. A nil enabled skips the enabled check.
func (c *Checker) verifyUser(ctx context.Context, t *checker.Target, collectionURI, username, role string, enabled *bool) string {
	uris, err := t.Service.Members(ctx, collectionURI)
	if err != nil {
		return ""
	}
	for _, uri := range uris {
		obj, err := t.Service.Get(ctx, uri)
		if err != nil {
			continue
		}
		if obj.StringOr("UserName", "") != username {
			continue
		}
		if role != "" && obj.StringOr("RoleId", "") != role {
			return ""
		}
		if enabled != nil {
			got, ok := obj.Bool("Enabled")
			if !ok || got != *enabled {
				return ""
			}
		}

		return uri
	}

	return ""
}

func (c *Checker) enableUserTest(ctx context.Context, t *checker.Target, user *testUser) {
	operation := fmt.Sprintf("Enabling user '%s'", user.username)
	t.Logger().Infow(operation)

	obj, err := t.Service.Get(ctx, user.uri)
	if err != nil {
		t.Results.Add(Category, testEnableUser, operation, result.StatusFail,
			fmt.Sprintf("Failed to get user '%s' (%v).", user.username, err))

		return
	}
	if enabled, ok := obj.Bool("Enabled"); !ok || enabled {
		t.Results.Add(Category, testEnableUser, operation, result.StatusSkip,
			fmt.Sprintf("User '%s' already enabled by the service.", user.username))

		return
	}

	if err := t.Service.Patch(ctx, user.uri, map[string]any{"Enabled": true}); err != nil {
		t.Results.Add(Category, testEnableUser, operation, result.StatusFail,
			fmt.Sprintf("Failed to enable user '%s' (%v).", user.username, err))

		return
	}

	obj, err = t.Service.Get(ctx, user.uri)
	if err == nil {
		if enabled, ok := obj.Bool("Enabled"); ok && enabled {
			t.Results.Add(Category, testEnableUser, operation, result.StatusPass, "")

			return
		}
	}
	t.Results.Add(Category, testEnableUser, operation, result.StatusFail,
		fmt.Sprintf("User '%s' not enabled after successful PATCH.", user.username))
}

func (c *Checker) credentialCheckTest(ctx context.Context, t *checker.Target, user *testUser) {
	if t.NewSession == nil {
		t.Results.Add(Category, testCredentialCheck, "", result.StatusSkip,
			"No session factory is available for credential checks.")

		return
	}

	operation := fmt.Sprintf("Logging in as '%s' with the correct password", user.username)
	t.Logger().Infow(operation)
	if session, err := t.NewSession(ctx, user.username, user.password); err != nil {
		t.Results.Add(Category, testCredentialCheck, operation, result.StatusFail,
			fmt.Sprintf("Failed to login with user '%s' (%v).", user.username, err))
	} else {
		t.Results.Add(Category, testCredentialCheck, operation, result.StatusPass, "")
		_ = session.Close()
	}

	operation = fmt.Sprintf("Logging in as '%s', but with the incorrect password", user.username)
	t.Logger().Infow(operation)
	if session, err := t.NewSession(ctx, user.username, user.password+"ExtraStuff"); err != nil {
		t.Results.Add(Category, testCredentialCheck, operation, result.StatusPass, "")
	} else {
		t.Results.Add(Category, testCredentialCheck, operation, result.StatusFail,
			fmt.Sprintf("Successful login with user '%s' when using invalid credentials.", user.username))
		_ = session.Close()
	}
}

func (c *Checker) changeRoleTest(ctx context.Context, t *checker.Target, user *testUser) {
	for _, role := range []string{"ReadOnly", "Operator", "Administrator"} {
		operation := fmt.Sprintf("Setting user '%s' to role '%s'", user.username, role)
		t.Logger().Infow(operation)

		if err := t.Service.Patch(ctx, user.uri, map[string]any{"RoleId": role}); err != nil {
			t.Results.Add(Category, testChangeRole, operation, result.StatusFail,
				fmt.Sprintf("Failed to set user '%s' to '%s' (%v).", user.username, role, err))

			continue
		}

		obj, err := t.Service.Get(ctx, user.uri)
		if err != nil || obj.StringOr("RoleId", "") != role {
			t.Results.Add(Category, testChangeRole, operation, result.StatusFail,
				fmt.Sprintf("Failed to find user '%s' with the role '%s' after successful PATCH.", user.username, role))

			continue
		}
		t.Results.Add(Category, testChangeRole, operation, result.StatusPass, "")
	}
}

func (c *Checker) deleteUserTest(ctx context.Context, t *checker.Target, collectionURI string, user *testUser) {
	operation := fmt.Sprintf("Deleting user '%s'", user.username)
	t.Logger().Infow(operation)

	if err := t.Service.Delete(ctx, user.uri); err != nil {
		t.Results.Add(Category, testDeleteUser, operation, result.StatusFail,
			fmt.Sprintf("Failed to delete user '%s' (%v).", user.username, err))

		return
	}

	if c.verifyUser(ctx, t, collectionURI, user.username, "", nil) != "" {
		t.Results.Add(Category, testDeleteUser, operation, result.StatusFail,
			fmt.Sprintf("User '%s' is still in the user list after successful DELETE.", user.username))

		return
	}
	user.deleted = true
	t.Results.Add(Category, testDeleteUser, operation, result.StatusPass, "")
}

// cleanup removes a leftover test account. It runs even when the run
// context was canceled so an interrupt does not strand the account.
func (c *Checker) cleanup(ctx context.Context, t *checker.Target, user *testUser) {
	if user.deleted {
		return
	}

	operation := fmt.Sprintf("Cleaning up user '%s'", user.username)
	t.Logger().Infow(operation)

	cleanupCtx := context.WithoutCancel(ctx)
	if err := t.Service.Delete(cleanupCtx, user.uri); err != nil {
		t.Results.Add(Category, testDeleteUser, operation, result.StatusWarn,
			fmt.Sprintf("Failed to clean up user '%s' (%v); the account may need manual removal.", user.username, err))

		return
	}
	user.deleted = true
}

// freeUsernames returns the first n testuserN names not already in use.
func freeUsernames(existing map[string]bool, n int) []string {
	var out []string
	for i := 0; len(out) < n && i < 1000; i++ {
		candidate := fmt.Sprintf("testuser%d", i)
		if !existing[candidate] {
			out = append(out, candidate)
		}
	}

	return out
}
