// Package ethernet implements the manager Ethernet interface use case:
// enumerating each manager's Ethernet interfaces and validating how they
// represent VLAN configuration and IP addresses.
package ethernet

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/redfish-tools/usecase-checkers/pkg/checker"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/checks/shared"
	"github.com/redfish-tools/usecase-checkers/pkg/resource"
	"github.com/redfish-tools/usecase-checkers/pkg/validate"
)

const (
	Category = "Manager Ethernet Interfaces"

	testCount     = "Ethernet Interface Count"
	testVLAN      = "VLAN Check"
	testAddresses = "Addresses Check"
)

// Checker drives the manager Ethernet interface use case.
type Checker struct {
	checker.Base
}

// New creates the manager Ethernet interface checker.
func New() *Checker {
	return &Checker{
		Base: checker.Base{
			CheckerID:          "manager.ethernet",
			CheckerCategory:    Category,
			CheckerDescription: "Verifies each manager's Ethernet interfaces represent VLANs and IP addresses correctly",
			TestCases: []checker.TestCase{
				{
					Name:        testCount,
					Description: "Verifies the Ethernet interface list for each manager is not empty",
					Details:     "Locates the Ethernet interface collection for each manager and performs GET on all members.",
				},
				{
					Name:        testVLAN,
					Description: "Verifies that an Ethernet interface represents VLAN information correctly",
					Details:     "Verifies the VLAN property is present along with its configuration properties.",
				},
				{
					Name:        testAddresses,
					Description: "Verifies that an Ethernet interface represents IP addresses correctly",
					Details:     "Verifies the properties related to IP addresses are present and contain valid values.",
				},
			},
		},
	}
}

// managerInterfaces pairs a manager with its fetched Ethernet interfaces.
type managerInterfaces struct {
	manager    shared.Member
	interfaces []shared.Member
}

func (c *Checker) Run(ctx context.Context, t *checker.Target) error {
	if !t.Service.Root().Has("Managers") {
		shared.SkipAll(t, Category, c.TestCases, "Service does not contain a manager collection.")

		return nil
	}

	managers := c.interfaceCountTest(ctx, t)
	c.vlanTest(t, managers)
	c.addressesTest(t, managers)

	return nil
}

// interfaceCountTest enumerates the managers and fetches every Ethernet
// interface each one exposes.
func (c *Checker) interfaceCountTest(ctx context.Context, t *checker.Target) []managerInterfaces {
	var managers []managerInterfaces

	for _, manager := range shared.Collection(ctx, t, Category, testCount, "Managers", "manager") {
		entry := managerInterfaces{manager: manager}

		operation := "Counting the members of the Ethernet interface collection"
		t.Logger().Infow(operation, "manager", manager.ID())

		ref, ok := manager.Object.Object("EthernetInterfaces")
		if !ok {
			t.Results.Add(Category, testCount, operation, result.StatusSkip,
				fmt.Sprintf("Manager '%s' does not contain an Ethernet interface collection.", manager.ID()))
			managers = append(managers, entry)

			continue
		}
		collectionURI, _ := ref.ODataID()

		uris, err := t.Service.Members(ctx, collectionURI)
		switch {
		case err != nil:
			t.Results.Add(Category, testCount, operation, result.StatusFail,
				fmt.Sprintf("Failed to get the Ethernet interface list for manager '%s' (%v).", manager.ID(), err))
		case len(uris) == 0:
			t.Results.Add(Category, testCount, operation, result.StatusFail, "No Ethernet interfaces were found.")
		default:
			t.Results.Add(Category, testCount, operation, result.StatusPass, "")
		}

		for _, uri := range uris {
			obj, err := t.Service.Get(ctx, uri)
			operation := fmt.Sprintf("Getting Ethernet interface '%s' from manager '%s'", uri, manager.ID())
			t.Logger().Infow(operation)
			if err != nil {
				t.Results.Add(Category, testCount, operation, result.StatusFail,
					fmt.Sprintf("Failed to get Ethernet interface '%s' on manager '%s' (%v).", uri, manager.ID(), err))

				continue
			}
			t.Results.Add(Category, testCount, operation, result.StatusPass, "")
			entry.interfaces = append(entry.interfaces, shared.Member{URI: uri, Object: obj})
		}

		managers = append(managers, entry)
	}

	return managers
}

// vlanProperties are checked inside each VLAN object, in order. The first
// two must be present for the object to be useful.
var (
	vlanProperties         = []string{"VLANEnable", "VLANId", "VLANPriority", "Tagged"}
	requiredVLANProperties = []string{"VLANEnable", "VLANId"}
)

func (c *Checker) vlanTest(t *checker.Target, managers []managerInterfaces) {
	if len(managers) == 0 {
		t.Results.Add(Category, testVLAN, "", result.StatusSkip, "No managers were found.")

		return
	}

	for _, entry := range managers {
		managerID := entry.manager.ID()
		if len(entry.interfaces) == 0 {
			t.Results.Add(Category, testVLAN, "", result.StatusSkip,
				fmt.Sprintf("Manager '%s' does not contain any Ethernet interfaces.", managerID))

			continue
		}

		for _, iface := range entry.interfaces {
			operation := fmt.Sprintf("Checking if Ethernet interface '%s' on manager '%s' has the 'VLAN' property",
				iface.ID(), managerID)
			t.Logger().Infow(operation)

			if !iface.Object.Has("VLAN") {
				t.Results.Add(Category, testVLAN, operation, result.StatusSkip,
					fmt.Sprintf("Ethernet interface '%s' on manager '%s' does not have a VLAN.", iface.ID(), managerID))

				continue
			}
			t.Results.Add(Category, testVLAN, operation, result.StatusPass, "")

			vlan, ok := iface.Object.Object("VLAN")
			if !ok {
				t.Results.Add(Category, testVLAN, operation, result.StatusWarn, "The 'VLAN' property is null.")

				continue
			}

			for _, prop := range vlanProperties {
				operation := fmt.Sprintf("Checking the '%s' property of Ethernet interface '%s' on manager '%s'",
					prop, iface.ID(), managerID)
				t.Logger().Infow(operation)

				switch {
				case !vlan.Has(prop) && slices.Contains(requiredVLANProperties, prop):
					t.Results.Add(Category, testVLAN, operation, result.StatusFail,
						fmt.Sprintf("The '%s' property is not present.", prop))
				case !vlan.Has(prop):
					t.Results.Add(Category, testVLAN, operation, result.StatusSkip,
						fmt.Sprintf("The '%s' property is not present.", prop))
				case vlan.IsNull(prop):
					// Null is reserved for error cases; configuration
					// properties should carry a real value.
					t.Results.Add(Category, testVLAN, operation, result.StatusWarn,
						fmt.Sprintf("The '%s' property is null.", prop))
				default:
					t.Results.Add(Category, testVLAN, operation, result.StatusPass, "")
				}
			}
		}
	}
}

// addressProperties are the interface properties holding addresses, in the
// order they are checked. nonNullProperties must not pad arrays with null;
// ipProperties hold structured address objects with per-entry requirements.
var (
	addressProperties = []string{
		"NameServers",
		"StaticNameServers",
		"IPv4Addresses",
		"IPv4StaticAddresses",
		"IPv6Addresses",
		"IPv6StaticAddresses",
		"IPv6DefaultGateway",
		"IPv6StaticDefaultGateways",
	}
	nonNullProperties = []string{"NameServers", "IPv4Addresses", "IPv6Addresses"}
	ipProperties      = []string{
		"IPv4Addresses",
		"IPv4StaticAddresses",
		"IPv6Addresses",
		"IPv6StaticAddresses",
		"IPv6StaticDefaultGateways",
	}
)

func (c *Checker) addressesTest(t *checker.Target, managers []managerInterfaces) {
	if len(managers) == 0 {
		t.Results.Add(Category, testAddresses, "", result.StatusSkip, "No managers were found.")

		return
	}

	for _, entry := range managers {
		managerID := entry.manager.ID()
		if len(entry.interfaces) == 0 {
			t.Results.Add(Category, testAddresses, "", result.StatusSkip,
				fmt.Sprintf("Manager '%s' does not contain any Ethernet interfaces.", managerID))

			continue
		}

		for _, iface := range entry.interfaces {
			for _, prop := range addressProperties {
				c.checkAddressProperty(t, managerID, iface, prop)
			}
		}
	}
}

func (c *Checker) checkAddressProperty(t *checker.Target, managerID string, iface shared.Member, prop string) {
	operation := fmt.Sprintf("Checking if Ethernet interface '%s' on manager '%s' contains the '%s' property",
		iface.ID(), managerID, prop)
	t.Logger().Infow(operation)

	if !iface.Object.Has(prop) {
		t.Results.Add(Category, testAddresses, operation, result.StatusSkip,
			fmt.Sprintf("The '%s' property is not present.", prop))

		return
	}
	t.Results.Add(Category, testAddresses, operation, result.StatusPass, "")

	operation = fmt.Sprintf("Checking if Ethernet interface '%s' on manager '%s' does not contain invalid addresses in the '%s' property",
		iface.ID(), managerID, prop)
	t.Logger().Infow(operation)

	if address, found := validate.InvalidAddress(iface.Object[prop]); found {
		t.Results.Add(Category, testAddresses, operation, result.StatusFailWarn,
			fmt.Sprintf("The '%s' property contains the invalid address '%s'.", prop, address))
	} else {
		t.Results.Add(Category, testAddresses, operation, result.StatusPass, "")
	}

	if slices.Contains(nonNullProperties, prop) {
		operation = fmt.Sprintf("Checking if Ethernet interface '%s' on manager '%s' does not contain null values in the '%s' property",
			iface.ID(), managerID, prop)
		t.Logger().Infow(operation)

		entries, _ := iface.Object.Array(prop)
		if iface.Object.IsNull(prop) || slices.Contains(entries, nil) {
			t.Results.Add(Category, testAddresses, operation, result.StatusFail,
				fmt.Sprintf("The '%s' property contains one or more null values.", prop))
		} else {
			t.Results.Add(Category, testAddresses, operation, result.StatusPass, "")
		}
	}

	if !slices.Contains(ipProperties, prop) {
		return
	}
	entries, _ := iface.Object.Array(prop)

	if strings.Contains(prop, "IPv4") {
		c.checkGatewayPlacement(t, managerID, iface, prop, entries)
		c.checkIPv4Literals(t, managerID, iface, prop, entries)
	}
	c.checkExpectedAddressProperties(t, managerID, iface, prop, entries)
}

// checkGatewayPlacement verifies the gateway rides in the first IPv4 array
// member and nowhere else; clients rely on that position.
func (c *Checker) checkGatewayPlacement(t *checker.Target, managerID string, iface shared.Member, prop string, entries []any) {
	operation := fmt.Sprintf("Checking if Ethernet interface '%s' on manager '%s' only contains one gateway in the '%s' property",
		iface.ID(), managerID, prop)
	t.Logger().Infow(operation)

	if !validate.GatewayOnlyFirst(entries) {
		t.Results.Add(Category, testAddresses, operation, result.StatusFail,
			fmt.Sprintf("The '%s' property contains a gateway address outside the first array member.", prop))

		return
	}
	if len(entries) > 0 {
		if first, ok := entries[0].(map[string]any); ok {
			if !resource.Object(first).Has("Gateway") {
				t.Results.Add(Category, testAddresses, operation, result.StatusFail,
					fmt.Sprintf("The '%s' property does not have a gateway in the first array member.", prop))

				return
			}
		}
	}
	t.Results.Add(Category, testAddresses, operation, result.StatusPass, "")
}

// checkExpectedAddressProperties verifies each structured address entry
// carries the properties its flavor requires. Static address arrays do not
// report origin or state; null padding slots are skipped.
func (c *Checker) checkExpectedAddressProperties(t *checker.Target, managerID string, iface shared.Member, prop string, entries []any) {
	operation := fmt.Sprintf("Checking if Ethernet interface '%s' on manager '%s' contains expected properties in the '%s' property",
		iface.ID(), managerID, prop)
	t.Logger().Infow(operation)

	// Position matters in these arrays, so unconfigured slots must be
	// padded with null rather than replaced with another type.
	if !validate.NullPadding(entries) {
		t.Results.Add(Category, testAddresses, operation, result.StatusFail,
			fmt.Sprintf("The '%s' property contains array members that are neither address objects nor null.", prop))

		return
	}

	var expected []string
	if strings.Contains(prop, "IPv4") {
		expected = []string{"Address", "SubnetMask"}
		if !strings.Contains(prop, "Static") {
			expected = append(expected, "AddressOrigin")
		}
	} else {
		expected = []string{"Address", "PrefixLength"}
		if !strings.Contains(prop, "Static") {
			expected = append(expected, "AddressOrigin", "AddressState")
		}
	}

	for i, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if missing := validate.MissingProperties(resource.Object(obj), expected); len(missing) > 0 {
			t.Results.Add(Category, testAddresses, operation, result.StatusFail,
				fmt.Sprintf("The '%s' property does not contain the '%s' property at index %d.", prop, missing[0], i))

			return
		}
	}

	t.Results.Add(Category, testAddresses, operation, result.StatusPass, "")
}

// checkIPv4Literals verifies the dotted-quad fields of each IPv4 address
// entry parse as real addresses. Placeholder values are reported by the
// invalid address scan instead.
func (c *Checker) checkIPv4Literals(t *checker.Target, managerID string, iface shared.Member, prop string, entries []any) {
	operation := fmt.Sprintf("Checking if Ethernet interface '%s' on manager '%s' contains well-formed addresses in the '%s' property",
		iface.ID(), managerID, prop)
	t.Logger().Infow(operation)

	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"Address", "SubnetMask", "Gateway"} {
			value, ok := obj[key].(string)
			if !ok {
				continue
			}
			if _, placeholder := validate.InvalidAddress(value); placeholder {
				continue
			}
			if !validate.ValidIPv4(value) {
				t.Results.Add(Category, testAddresses, operation, result.StatusFail,
					fmt.Sprintf("The '%s' property contains the malformed address '%s'.", prop, value))

				return
			}
		}
	}

	t.Results.Add(Category, testAddresses, operation, result.StatusPass, "")
}
