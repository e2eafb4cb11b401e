// Package power implements the power control use case: inventory of
// supported reset types and verification that each exercised reset type
// lands the system in the expected power state.
package power

import (
	"context"
	"fmt"
	"time"

	"github.com/redfish-tools/usecase-checkers/pkg/checker"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/checks/shared"
	"github.com/redfish-tools/usecase-checkers/pkg/resource"
)

const (
	Category = "Power Control"

	testSystemCount    = "System Count"
	testResetType      = "Reset Type"
	testResetOperation = "Reset Operation"
)

// Reset types exercised when advertised, in order. Graceful variants are
// left alone to avoid shutting down a host the operator still needs.
var exercisedResetTypes = []string{"On", "ForceOn", "ForceOff", "ForceRestart", "PowerCycle"}

// Checker drives the power control use case.
type Checker struct {
	checker.Base

	PollAttempts int
	PollInterval time.Duration
}

// New creates the power control checker.
func New() *Checker {
	return &Checker{
		Base: checker.Base{
			CheckerID:          "power.control",
			CheckerCategory:    Category,
			CheckerDescription: "Verifies systems report supported reset types and transition to the expected power state after a reset",
			TestCases: []checker.TestCase{
				{
					Name:        testSystemCount,
					Description: "Verifies the system list is not empty",
					Details:     "Locates the system collection and performs GET on all members.",
				},
				{
					Name:        testResetType,
					Description: "Verifies each system reports supported reset types",
					Details:     "Inspects the Reset action for each system for the supported reset types.",
				},
				{
					Name:        testResetOperation,
					Description: "Verifies that a system can be reset",
					Details:     "Performs the Reset action on each system and monitors the power state until it reaches the expected value.",
				},
			},
		},
		PollAttempts: 10,
		PollInterval: 5 * time.Second,
	}
}

// resetAction is the reset capability discovered for one system.
type resetAction struct {
	target  string
	allowed []string
}

func (c *Checker) Run(ctx context.Context, t *checker.Target) error {
	systems, ok := shared.Systems(ctx, t, Category, testSystemCount)
	if !ok {
		shared.SkipAll(t, Category, c.Tests(), "Service does not contain a system collection.")

		return nil
	}

	capabilities := c.resetTypeTest(ctx, t, systems)
	c.resetOperationTest(ctx, t, systems, capabilities)

	return nil
}

// resetTypeTest inventories the reset capability of each system.
func (c *Checker) resetTypeTest(ctx context.Context, t *checker.Target, systems []shared.Member) map[string]resetAction {
	capabilities := make(map[string]resetAction)

	for _, system := range systems {
		operation := fmt.Sprintf("Getting supported reset types for system '%s'", system.ID())
		t.Logger().Infow(operation)

		actions, ok := system.Object.Object("Actions")
		if !ok {
			t.Results.Add(Category, testResetType, operation, result.StatusSkip,
				fmt.Sprintf("System '%s' does not support any actions.", system.ID()))

			continue
		}
		reset, ok := actions.Object("#ComputerSystem.Reset")
		if !ok {
			t.Results.Add(Category, testResetType, operation, result.StatusSkip,
				fmt.Sprintf("System '%s' does not support the 'Reset' action.", system.ID()))

			continue
		}

		allowed := reset.Strings("ResetType@Redfish.AllowableValues")
		if allowed == nil {
			allowed = c.allowedFromActionInfo(ctx, t, reset)
		}
		if allowed == nil {
			t.Results.Add(Category, testResetType, operation, result.StatusFailWarn,
				fmt.Sprintf("System '%s' does not report supported reset types.", system.ID()))

			continue
		}

		t.Results.Add(Category, testResetType, operation, result.StatusPass, "")
		capabilities[system.URI] = resetAction{
			target:  reset.StringOr("target", ""),
			allowed: allowed,
		}
	}

	return capabilities
}

// allowedFromActionInfo resolves allowable reset types through the action
// info resource when the inline annotation is absent.
func (c *Checker) allowedFromActionInfo(ctx context.Context, t *checker.Target, reset resource.Object) []string {
	infoURI, ok := reset.String("@Redfish.ActionInfo")
	if !ok {
		return nil
	}

	info, err := t.Service.Get(ctx, infoURI)
	if err != nil {
		t.Logger().Debugw("failed to get action info", "uri", infoURI, "error", err)

		return nil
	}

	params, ok := info.Objects("Parameters")
	if !ok {
		return nil
	}
	for _, param := range params {
		if param.StringOr("Name", "") == "ResetType" {
			return param.Strings("AllowableValues")
		}
	}

	return nil
}

// resetOperationTest performs each exercised reset type on each system and
// monitors the resulting power state.
func (c *Checker) resetOperationTest(ctx context.Context, t *checker.Target, systems []shared.Member, capabilities map[string]resetAction) {
	for _, resetType := range exercisedResetTypes {
		for _, system := range systems {
			operation := fmt.Sprintf("Performing the reset action with the reset type '%s' for system '%s'", resetType, system.ID())
			t.Logger().Infow(operation)

			capability, ok := capabilities[system.URI]
			if !ok {
				t.Results.Add(Category, testResetOperation, operation, result.StatusSkip,
					fmt.Sprintf("System '%s' does not support the 'Reset' action or does not show supported reset types.", system.ID()))

				continue
			}
			if !contains(capability.allowed, resetType) {
				t.Results.Add(Category, testResetOperation, operation, result.StatusSkip,
					fmt.Sprintf("System '%s' does not support the reset action with reset type '%s'.", system.ID(), resetType))

				continue
			}

			before, _ := system.Object.String("PowerState")

			resetOK := true
			if err := t.Service.Post(ctx, capability.target, map[string]any{"ResetType": resetType}); err != nil {
				t.Results.Add(Category, testResetOperation, operation, result.StatusFailWarn,
					fmt.Sprintf("Failed to reset system '%s' (%v).", system.ID(), err))
				resetOK = false
			} else {
				t.Results.Add(Category, testResetOperation, operation, result.StatusPass, "")
			}

			operation = fmt.Sprintf("Monitoring the power state of system '%s'", system.ID())
			t.Logger().Infow(operation)

			if !resetOK {
				t.Results.Add(Category, testResetOperation, operation, result.StatusSkip,
					fmt.Sprintf("System '%s' failed the reset action with reset type '%s'.", system.ID(), resetType))

				continue
			}

			if !system.Object.Has("PowerState") {
				// Older services omit PowerState; the reset still happened,
				// it just cannot be confirmed.
				t.Results.Add(Category, testResetOperation, operation, result.StatusWarn,
					fmt.Sprintf("System '%s' does not support the 'PowerState' property.", system.ID()))

				continue
			}

			c.monitorPowerState(ctx, t, system, resetType, before, operation)
		}
	}
}

func (c *Checker) monitorPowerState(ctx context.Context, t *checker.Target, system shared.Member, resetType, before, operation string) {
	expected := expectedPowerState(resetType, before)

	var last string
	done, err := t.Service.Poll(ctx, c.PollAttempts, c.PollInterval, func(ctx context.Context) (bool, error) {
		obj, err := t.Service.Get(ctx, system.URI)
		if err != nil {
			return false, err
		}
		last, _ = obj.String("PowerState")

		return last == expected, nil
	})
	if err != nil {
		t.Results.Add(Category, testResetOperation, operation, result.StatusFail,
			fmt.Sprintf("Failed to monitor the power state for system '%s' (%v).", system.ID(), err))

		return
	}

	t.Logger().Infow("finished monitoring power state", "system", system.ID(), "state", last)

	if !done {
		t.Results.Add(Category, testResetOperation, operation, result.StatusFail,
			fmt.Sprintf("System '%s' did not transition to the '%s' power state after performing a reset of type '%s'.", system.ID(), expected, resetType))

		return
	}
	t.Results.Add(Category, testResetOperation, operation, result.StatusPass, "")
}

// expectedPowerState maps a reset type to the power state the system should
// settle in. PushPowerButton toggles relative to the prior state.
func expectedPowerState(resetType, before string) string {
	switch resetType {
	case "ForceOff", "GracefulShutdown":
		return "Off"
	case "PushPowerButton":
		if before == "On" {
			return "Off"
		}

		return "On"
	default:
		return "On"
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}

	return false
}
