package thermal

import (
	"context"
	"testing"

	"github.com/onsi/gomega"

	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/testutil"
)

const (
	chassisURI  = "/redfish/v1/Chassis"
	chassis1URI = "/redfish/v1/Chassis/1U"
	thermalURI  = "/redfish/v1/Chassis/1U/Thermal"
	powerURI    = "/redfish/v1/Chassis/1U/Power"
)

func newService() *testutil.FakeService {
	svc := testutil.NewFakeService(testutil.Obj(`{"Chassis": {"@odata.id": "/redfish/v1/Chassis"}}`))
	svc.Set(chassisURI, testutil.Obj(`{"Members": [{"@odata.id": "/redfish/v1/Chassis/1U"}]}`))
	svc.Set(chassis1URI, testutil.Obj(`{
		"Id": "1U",
		"Thermal": {"@odata.id": "/redfish/v1/Chassis/1U/Thermal"},
		"Power": {"@odata.id": "/redfish/v1/Chassis/1U/Power"}
	}`))

	return svc
}

const conformantPower = `{
	"Voltages": [
		{"Name": "VRM1 Voltage", "Status": {"State": "Enabled"}, "ReadingVolts": 12.1}
	]
}`

func TestPlausibleSensorsPass(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	svc.Set(thermalURI, testutil.Obj(`{
		"Temperatures": [
			{"Name": "CPU1 Temp", "Status": {"State": "Enabled"}, "ReadingCelsius": 41},
			{"Name": "CPU2 Temp", "Status": {"State": "Absent"}, "ReadingCelsius": null}
		],
		"Fans": [
			{"Name": "Fan 1", "Status": {"State": "Enabled"}, "Reading": 2100}
		]
	}`))
	svc.Set(powerURI, testutil.Obj(conformantPower))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusPass))
	g.Expect(target.Results.Counts().Fail).To(gomega.BeZero())
}

func TestAbsentSensorWithLiveReadingFails(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	svc.Set(thermalURI, testutil.Obj(`{
		"Temperatures": [
			{"Name": "CPU2 Temp", "Status": {"State": "Absent"}, "ReadingCelsius": 0}
		]
	}`))
	svc.Set(powerURI, testutil.Obj(conformantPower))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusFail))

	var message string
	for _, r := range target.Results.Results() {
		if r.Status == result.StatusFail {
			message = r.Message
		}
	}
	g.Expect(message).To(gomega.ContainSubstring("CPU2 Temp"))
	g.Expect(message).To(gomega.ContainSubstring("state 'Absent'"))
}

func TestStateEchoReadingPasses(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	svc.Set(thermalURI, testutil.Obj(`{
		"Temperatures": [
			{"Name": "Exhaust Temp", "Status": {"State": "Absent"}, "ReadingCelsius": "Absent"}
		]
	}`))
	svc.Set(powerURI, testutil.Obj(conformantPower))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusPass))
}

func TestChassisWithoutSensorsFails(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	svc.Set(thermalURI, testutil.Obj(`{"Temperatures": [], "Fans": []}`))
	svc.Set(powerURI, testutil.Obj(`{"Voltages": []}`))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusFail))

	var messages []string
	for _, r := range target.Results.Results() {
		if r.Status == result.StatusFail {
			messages = append(messages, r.Message)
		}
	}
	g.Expect(messages).To(gomega.ConsistOf(
		"No 'Thermal' sensors were found in chassis '1U'.",
		"No 'Power' sensors were found in chassis '1U'."))
}

func TestSensorlessPowerCategoryFails(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	svc.Set(thermalURI, testutil.Obj(`{
		"Temperatures": [
			{"Name": "CPU1 Temp", "Status": {"State": "Enabled"}, "ReadingCelsius": 41}
		]
	}`))
	svc.Set(powerURI, testutil.Obj(`{"Voltages": [], "PowerSupplies": []}`))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Overall()).To(gomega.Equal(result.StatusFail))

	var messages []string
	for _, r := range target.Results.Results() {
		if r.Status == result.StatusFail {
			messages = append(messages, r.Message)
		}
	}
	g.Expect(messages).To(gomega.ConsistOf("No 'Power' sensors were found in chassis '1U'."))
}

func TestMissingPowerResourceFails(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := testutil.NewFakeService(testutil.Obj(`{"Chassis": {"@odata.id": "/redfish/v1/Chassis"}}`))
	svc.Set(chassisURI, testutil.Obj(`{"Members": [{"@odata.id": "/redfish/v1/Chassis/1U"}]}`))
	svc.Set(chassis1URI, testutil.Obj(`{
		"Id": "1U",
		"Thermal": {"@odata.id": "/redfish/v1/Chassis/1U/Thermal"}
	}`))
	svc.Set(thermalURI, testutil.Obj(`{
		"Temperatures": [
			{"Name": "CPU1 Temp", "Status": {"State": "Enabled"}, "ReadingCelsius": 41}
		]
	}`))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())

	var messages []string
	for _, r := range target.Results.Results() {
		if r.Status == result.StatusFail {
			messages = append(messages, r.Message)
		}
	}
	g.Expect(messages).To(gomega.ConsistOf("No 'Power' sensors were found in chassis '1U'."))
}

func TestNoChassisCollectionSkipsAll(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := testutil.NewFakeService(testutil.Obj(`{}`))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Len()).To(gomega.Equal(3))
	for _, r := range target.Results.Results() {
		g.Expect(r.Status).To(gomega.Equal(result.StatusSkip))
	}
}

func TestEnabledSensorWithoutReadingWarns(t *testing.T) {
	g := gomega.NewWithT(t)

	svc := newService()
	svc.Set(thermalURI, testutil.Obj(`{
		"Temperatures": [
			{"Name": "Inlet Temp", "Status": {"State": "Enabled"}, "ReadingCelsius": null}
		]
	}`))
	svc.Set(powerURI, testutil.Obj(conformantPower))
	target := testutil.NewTarget(svc, false)

	err := New().Run(context.Background(), target)

	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(target.Results.Counts().Fail).To(gomega.BeZero())

	var message string
	for _, r := range target.Results.Results() {
		if r.Status == result.StatusWarn {
			message = r.Message
		}
	}
	g.Expect(message).To(gomega.ContainSubstring("is enabled, but contains no reading"))
}
