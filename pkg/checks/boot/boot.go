// Package boot implements the boot override use case: configuring the
// one-time and continuous boot override modes, resetting the system, and
// verifying the override reverts after the boot.
package boot

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
	Category = "Boot Override"

	testSystemCount   = "System Count"
	testBootCheck     = "Boot Override Check"
	testContinuous    = "Continuous Boot Override"
	testOneTime       = "One-Time Boot Override"
	testOneTimeVerify = "One-Time Boot Override Check"
	testDisable       = "Disable Boot Override"
)

// Checker drives the boot override use case.
type Checker struct {
	checker.Base

	PollAttempts int
	PollInterval time.Duration
}

// New creates the boot override checker.
func New() *Checker {
	return &Checker{
		Base: checker.Base{
			CheckerID:          "boot.override",
			CheckerCategory:    Category,
			CheckerDescription: "Verifies the one-time boot override is applied on the next boot and reverts afterwards",
			TestCases: []checker.TestCase{
				{
					Name:        testSystemCount,
					Description: "Verifies the system list is not empty",
					Details:     "Locates the system collection and performs GET on all members.",
				},
				{
					Name:        testBootCheck,
					Description: "Verifies that a system contains the boot override object",
					Details:     "Verifies the Boot property is present along with its boot override properties.",
				},
				{
					Name:        testContinuous,
					Description: "Verifies the boot override supports the 'continuous' mode",
					Details:     "Performs a PATCH to set the boot override to 'continuous' mode and verifies the settings were applied.",
				},
				{
					Name:        testOneTime,
					Description: "Verifies the boot override supports the 'one-time' mode",
					Details:     "Performs a PATCH to set the boot override to 'one-time' mode and verifies the settings were applied.",
				},
				{
					Name:        testOneTimeVerify,
					Description: "Verifies the one-time boot override is performed",
					Details:     "Resets the system and monitors that the boot override transitions back to 'disabled' after the boot.",
				},
				{
					Name:        testDisable,
					Description: "Verifies the boot override can be disabled",
					Details:     "Performs a PATCH to set the boot override to 'disabled' mode and verifies the settings were applied.",
				},
			},
		},
		PollAttempts: 30,
		PollInterval: 10 * time.Second,
	}
}

// overrideParams is the boot override capability discovered for one system.
// Nil means the system does not support a usable boot override.
type overrideParams struct {
	targets      []string // allowable BootSourceOverrideTarget values; nil when unannotated
	hasTargets   bool     // annotation present
	enabledModes []string // allowable BootSourceOverrideEnabled values; nil when unannotated
}

func (p *overrideParams) supportsTarget(target string) bool {
	if !p.hasTargets {
		// Without the annotation, assume PXE is available.
		return target == "Pxe"
	}

	return contains(p.targets, target)
}

func (p *overrideParams) supportsMode(mode string) bool {
	if p.enabledModes == nil {
		return true
	}

	return contains(p.enabledModes, mode)
}

func (c *Checker) Run(ctx context.Context, t *checker.Target) error {
	systems, ok := shared.Systems(ctx, t, Category, testSystemCount)
	if !ok {
		shared.SkipAll(t, Category, c.Tests(), "Service does not contain a system collection.")

		return nil
	}

	params := c.bootCheckTest(ctx, t, systems)
	c.setOverrideTest(ctx, t, systems, params, testContinuous, "Continuous")
	oneTime := c.setOverrideTest(ctx, t, systems, params, testOneTime, "Once")
	c.oneTimeVerifyTest(ctx, t, systems, oneTime)
	c.disableTest(ctx, t, systems, params)

	return nil
}

// bootCheckTest inspects the Boot object of each system.
func (c *Checker) bootCheckTest(ctx context.Context, t *checker.Target, systems []shared.Member) map[string]*overrideParams {
	params := make(map[string]*overrideParams)

	for _, system := range systems {
		operation := fmt.Sprintf("Checking for the 'Boot' property in system '%s'", system.ID())
		t.Logger().Infow(operation)

		boot, ok := system.Object.Object("Boot")
		if !ok {
			t.Results.Add(Category, testBootCheck, operation, result.StatusSkip,
				fmt.Sprintf("System '%s' does not contain the 'Boot' property.", system.ID()))

			continue
		}
		t.Results.Add(Category, testBootCheck, operation, result.StatusPass, "")

		operation = fmt.Sprintf("Checking for the 'BootSourceOverrideTarget' and 'BootSourceOverrideEnabled' properties in system '%s'", system.ID())
		hasTarget := boot.Has("BootSourceOverrideTarget")
		hasEnabled := boot.Has("BootSourceOverrideEnabled")
		switch {
		case !hasTarget && !hasEnabled:
			t.Results.Add(Category, testBootCheck, operation, result.StatusSkip,
				fmt.Sprintf("System '%s' does not contain the boot override properties.", system.ID()))

			continue
		case !hasTarget || !hasEnabled:
			t.Results.Add(Category, testBootCheck, operation, result.StatusFail,
				fmt.Sprintf("System '%s' contains 'BootSourceOverrideTarget' or 'BootSourceOverrideEnabled', but not both.", system.ID()))

			continue
		}
		t.Results.Add(Category, testBootCheck, operation, result.StatusPass, "")

		for _, prop := range []string{"BootSourceOverrideTarget", "BootSourceOverrideEnabled"} {
			operation = fmt.Sprintf("Checking for the '%s@Redfish.AllowableValues' property in system '%s'", prop, system.ID())
			if !boot.Has(prop + "@Redfish.AllowableValues") {
				t.Results.Add(Category, testBootCheck, operation, result.StatusWarn,
					fmt.Sprintf("System '%s' does not contain '%s@Redfish.AllowableValues'.", system.ID(), prop))
			} else {
				t.Results.Add(Category, testBootCheck, operation, result.StatusPass, "")
			}
		}

		c.uefiCompanionChecks(t, system, boot)

		params[system.URI] = &overrideParams{
			targets:      boot.Strings("BootSourceOverrideTarget@Redfish.AllowableValues"),
			hasTargets:   boot.Has("BootSourceOverrideTarget@Redfish.AllowableValues"),
			enabledModes: boot.Strings("BootSourceOverrideEnabled@Redfish.AllowableValues"),
		}
	}

	return params
}

// uefiCompanionChecks verifies that advertised UEFI boot override targets
// come with the property needed to use them.
func (c *Checker) uefiCompanionChecks(t *checker.Target, system shared.Member, boot resource.Object) {
	companions := []struct {
		target   string
		property string
	}{
		{"UefiTarget", "UefiTargetBootSourceOverride"},
		{"UefiHttp", "HttpBootUri"},
		{"UefiBootNext", "BootNext"},
	}

	allowable := boot.Strings("BootSourceOverrideTarget@Redfish.AllowableValues")
	for _, companion := range companions {
		operation := fmt.Sprintf("Checking that the 'Boot' property in system '%s' contains the '%s' property", system.ID(), companion.target)

		if !boot.Has("BootSourceOverrideTarget@Redfish.AllowableValues") {
			t.Results.Add(Category, testBootCheck, operation, result.StatusSkip,
				fmt.Sprintf("System '%s' does not contain 'BootSourceOverrideTarget@Redfish.AllowableValues'.", system.ID()))

			continue
		}
		if !contains(allowable, companion.target) {
			t.Results.Add(Category, testBootCheck, operation, result.StatusSkip,
				fmt.Sprintf("System '%s' does not support boot override to '%s'.", system.ID(), companion.target))

			continue
		}
		if !boot.Has(companion.property) {
			t.Results.Add(Category, testBootCheck, operation, result.StatusFail,
				fmt.Sprintf("System '%s' supports boot override to '%s' but does not contain '%s'.", system.ID(), companion.target, companion.property))
		} else {
			t.Results.Add(Category, testBootCheck, operation, result.StatusPass, "")
		}
	}
}

// pickTarget chooses the boot device for the override, honoring the
// caller's preference when the system allows it.
func (c *Checker) pickTarget(t *checker.Target, params *overrideParams) string {
	candidates := []string{"Pxe", "Usb"}
	if t.BootTarget != "" {
		candidates = append([]string{t.BootTarget}, candidates...)
	}
	for _, candidate := range candidates {
		if params.supportsTarget(candidate) {
			return candidate
		}
	}

	return ""
}

// setOverrideTest patches the boot override into the given mode on every
// capable system and verifies the settings stuck. Returns the set of system
// URIs where the override was applied.
func (c *Checker) setOverrideTest(ctx context.Context, t *checker.Target, systems []shared.Member, params map[string]*overrideParams, test, mode string) map[string]bool {
	applied := make(map[string]bool)
	modeWord := "continuous"
	if mode == "Once" {
		modeWord = "one-time"
	}

	for _, system := range systems {
		operation := fmt.Sprintf("Setting boot override to '%s' mode for system '%s'", modeWord, system.ID())
		t.Logger().Infow(operation)

		param, ok := params[system.URI]
		if !ok {
			t.Results.Add(Category, test, operation, result.StatusSkip,
				fmt.Sprintf("System '%s' does not support boot override.", system.ID()))

			continue
		}
		if !param.supportsMode(mode) {
			t.Results.Add(Category, test, operation, result.StatusSkip,
				fmt.Sprintf("System '%s' does not support '%s' boot override.", system.ID(), modeWord))

			continue
		}
		target := c.pickTarget(t, param)
		if target == "" {
			t.Results.Add(Category, test, operation, result.StatusSkip,
				fmt.Sprintf("System '%s' does not support PXE or USB boot override.", system.ID()))

			continue
		}

		if c.applyOverride(ctx, t, system, test, operation, target, mode) {
			applied[system.URI] = true
		}
	}

	return applied
}

// applyOverride patches the override and verifies it with a follow-up read.
func (c *Checker) applyOverride(ctx context.Context, t *checker.Target, system shared.Member, test, operation, target, mode string) bool {
	body := map[string]any{
		"Boot": map[string]any{
			"BootSourceOverrideEnabled": mode,
			"BootSourceOverrideTarget":  target,
		},
	}
	if err := t.Service.Patch(ctx, system.URI, body); err != nil {
		t.Results.Add(Category, test, operation, result.StatusFail,
			fmt.Sprintf("Failed to set boot override for system '%s' to '%s'/'%s' (%v).", system.ID(), target, mode, err))

		return false
	}

	boot, err := c.readBoot(ctx, t, system.URI)
	if err != nil {
		t.Results.Add(Category, test, operation, result.StatusFail,
			fmt.Sprintf("Failed to read boot override for system '%s' (%v).", system.ID(), err))

		return false
	}

	gotTarget := boot.StringOr("BootSourceOverrideTarget", "")
	gotMode := boot.StringOr("BootSourceOverrideEnabled", "")
	if gotTarget != target || gotMode != mode {
		t.Results.Add(Category, test, operation, result.StatusFail,
			fmt.Sprintf("'Boot' property for system '%s' contains '%s'/'%s' instead of '%s'/'%s' after PATCH operation.", system.ID(), gotTarget, gotMode, target, mode))

		return false
	}
	t.Results.Add(Category, test, operation, result.StatusPass, "")

	return true
}

// oneTimeVerifyTest resets each system with a pending one-time override and
// monitors the override reverting after the boot.
func (c *Checker) oneTimeVerifyTest(ctx context.Context, t *checker.Target, systems []shared.Member, oneTime map[string]bool) {
	for _, system := range systems {
		if !oneTime[system.URI] {
			operation := fmt.Sprintf("Performing one-time boot for system '%s'", system.ID())
			t.Results.Add(Category, testOneTimeVerify, operation, result.StatusSkip,
				fmt.Sprintf("System '%s' was not set to 'one-time' in the previous test.", system.ID()))

			continue
		}

		operation := fmt.Sprintf("Resetting system '%s'", system.ID())
		t.Logger().Infow(operation)
		if err := c.resetSystem(ctx, t, system); err != nil {
			t.Results.Add(Category, testOneTimeVerify, operation, result.StatusFailWarn,
				fmt.Sprintf("Failed to reset system '%s' (%v).", system.ID(), err))

			operation = fmt.Sprintf("Monitoring the boot progress for system '%s'", system.ID())
			t.Results.Add(Category, testOneTimeVerify, operation, result.StatusSkip,
				fmt.Sprintf("System '%s' was not reset successfully.", system.ID()))

			continue
		}
		t.Results.Add(Category, testOneTimeVerify, operation, result.StatusPass, "")

		c.monitorRevert(ctx, t, system)
	}
}

// monitorRevert polls the Boot object until the override reverts, then
// asserts both override properties are back at rest.
func (c *Checker) monitorRevert(ctx context.Context, t *checker.Target, system shared.Member) {
	operation := fmt.Sprintf("Monitoring the boot progress for system '%s'", system.ID())
	t.Logger().Infow(operation)

	var boot resource.Object
	done, err := t.Service.Poll(ctx, c.PollAttempts, c.PollInterval, func(ctx context.Context) (bool, error) {
		var err error
		boot, err = c.readBoot(ctx, t, system.URI)
		if err != nil {
			return false, err
		}
		enabled := boot.StringOr("BootSourceOverrideEnabled", "")

		return enabled == "Disabled" || enabled == "Continuous", nil
	})
	if err != nil {
		t.Results.Add(Category, testOneTimeVerify, operation, result.StatusFail,
			fmt.Sprintf("Failed to monitor the boot progress for system '%s' (%v).", system.ID(), err))

		return
	}

	enabled := boot.StringOr("BootSourceOverrideEnabled", "")
	target := boot.StringOr("BootSourceOverrideTarget", "")
	t.Logger().Infow("finished monitoring boot progress", "system", system.ID(), "enabled", enabled, "target", target)

	switch {
	case !done:
		t.Results.Add(Category, testOneTimeVerify, operation, result.StatusFail,
			fmt.Sprintf("Boot override for system '%s' did not revert after reset; 'BootSourceOverrideEnabled' contains '%s'.", system.ID(), enabled))
	case target != "None":
		t.Results.Add(Category, testOneTimeVerify, operation, result.StatusFail,
			fmt.Sprintf("Boot override for system '%s' did not revert after reset; 'BootSourceOverrideTarget' contains '%s'.", system.ID(), target))
	default:
		t.Results.Add(Category, testOneTimeVerify, operation, result.StatusPass, "")
	}
}

// disableTest turns the override off on every capable system.
func (c *Checker) disableTest(ctx context.Context, t *checker.Target, systems []shared.Member, params map[string]*overrideParams) {
	for _, system := range systems {
		operation := fmt.Sprintf("Setting boot override to 'disabled' mode for system '%s'", system.ID())
		t.Logger().Infow(operation)

		if _, ok := params[system.URI]; !ok {
			t.Results.Add(Category, testDisable, operation, result.StatusSkip,
				fmt.Sprintf("System '%s' does not support boot override.", system.ID()))

			continue
		}

		c.applyOverride(ctx, t, system, testDisable, operation, "None", "Disabled")
	}
}

// resetSystem issues the system's Reset action, preferring a restart type
// so the host comes back on its own.
func (c *Checker) resetSystem(ctx context.Context, t *checker.Target, system shared.Member) error {
	actions, ok := system.Object.Object("Actions")
	if !ok {
		return fmt.Errorf("system '%s' does not support any actions", system.ID())
	}
	reset, ok := actions.Object("#ComputerSystem.Reset")
	if !ok {
		return fmt.Errorf("system '%s' does not support the 'Reset' action", system.ID())
	}
	target := reset.StringOr("target", "")
	if target == "" {
		return fmt.Errorf("the 'Reset' action for system '%s' has no target", system.ID())
	}

	resetType := ""
	allowed := reset.Strings("ResetType@Redfish.AllowableValues")
	for _, preferred := range []string{"GracefulRestart", "ForceRestart", "PowerCycle", "On"} {
		if contains(allowed, preferred) {
			resetType = preferred

			break
		}
	}
	if resetType == "" && len(allowed) > 0 {
		resetType = allowed[0]
	}

	body := map[string]any{}
	if resetType != "" {
		body["ResetType"] = resetType
	}

	return t.Service.Post(ctx, target, body)
}

func (c *Checker) readBoot(ctx context.Context, t *checker.Target, uri string) (resource.Object, error) {
	obj, err := t.Service.Get(ctx, uri)
	if err != nil {
		return nil, err
	}
	boot, ok := obj.Object("Boot")
	if !ok {
		return nil, fmt.Errorf("resource has no 'Boot' property")
	}

	return boot, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}

	return false
}
