package service

import "context"

// Info describes the service under test, for inclusion in reports.
type Info struct {
	Product         string `json:"product,omitempty"`
	Vendor          string `json:"vendor,omitempty"`
	Manufacturer    string `json:"manufacturer,omitempty"`
	Model           string `json:"model,omitempty"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	RedfishVersion  string `json:"redfish_version,omitempty"`
}

// Info collects identifying details from the service root and, best
// effort, from the first manager. Lookup failures leave fields empty
// rather than failing the run.
func (c *Client) Info(ctx context.Context) Info {
	info := Info{
		Product: c.root.StringOr("Product", ""),
		Vendor:  c.root.StringOr("Vendor", ""),
	}
	if c.version != nil {
		info.RedfishVersion = c.version.String()
	}

	managers, ok := c.root.Object("Managers")
	if !ok {
		return info
	}
	uri, ok := managers.ODataID()
	if !ok {
		return info
	}
	members, err := c.Members(ctx, uri)
	if err != nil || len(members) == 0 {
		return info
	}
	manager, err := c.Get(ctx, members[0])
	if err != nil {
		return info
	}

	var view struct {
		Manufacturer    string `json:"Manufacturer"`
		Model           string `json:"Model"`
		FirmwareVersion string `json:"FirmwareVersion"`
	}
	if err := manager.DecodeInto(&view); err != nil {
		return info
	}
	info.Manufacturer = view.Manufacturer
	info.Model = view.Model
	info.FirmwareVersion = view.FirmwareVersion

	return info
}
