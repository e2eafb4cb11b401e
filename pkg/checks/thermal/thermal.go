// Package thermal implements the power/thermal info use case: collecting
// sensor readings from each chassis and checking them for plausibility.
package thermal

import (
	"context"
	"fmt"

	"github.com/redfish-tools/usecase-checkers/pkg/checker"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/checks/shared"
	"github.com/redfish-tools/usecase-checkers/pkg/resource"
	"github.com/redfish-tools/usecase-checkers/pkg/validate"
)

const (
	Category = "Power/Thermal Info"

	testChassisCount = "Chassis Count"
	testSensorCount  = "Sensor Count"
	testSensorState  = "Sensor State"
)

// Checker drives the power/thermal info use case.
type Checker struct {
	checker.Base
}

// New creates the power/thermal checker.
func New() *Checker {
	return &Checker{
		Base: checker.Base{
			CheckerID:          "thermal.info",
			CheckerCategory:    Category,
			CheckerDescription: "Verifies each chassis reports power and thermal sensors with plausible readings",
			TestCases: []checker.TestCase{
				{
					Name:        testChassisCount,
					Description: "Verifies the chassis list is not empty",
					Details:     "Locates the chassis collection and performs GET on all members.",
				},
				{
					Name:        testSensorCount,
					Description: "Verifies each chassis reports at least one sensor",
					Details:     "Reads the Power and Thermal resources of each chassis and counts the sensor readings.",
				},
				{
					Name:        testSensorState,
					Description: "Verifies sensors that are not enabled do not carry live readings",
					Details:     "Inspects the state and reading of each sensor for consistency.",
				},
			},
		},
	}
}

// sensorSources maps a chassis sub-resource to the sensor arrays inside it
// and the property carrying each array's reading.
var sensorSources = []struct {
	resourceKey string
	arrays      map[string]string
}{
	{"Thermal", map[string]string{
		"Temperatures": "ReadingCelsius",
		"Fans":         "Reading",
	}},
	{"Power", map[string]string{
		"Voltages":      "ReadingVolts",
		"PowerSupplies": "LineInputVoltage",
	}},
}

func (c *Checker) Run(ctx context.Context, t *checker.Target) error {
	if !t.Service.Root().Has("Chassis") {
		shared.SkipAll(t, Category, c.Tests(), "Service does not contain a chassis collection.")

		return nil
	}

	chassis := shared.Collection(ctx, t, Category, testChassisCount, "Chassis", "chassis")
	for _, member := range chassis {
		categories := c.collectReadings(ctx, t, member)
		c.sensorCountTest(t, member, categories)

		var readings []validate.SensorReading
		for _, category := range categories {
			readings = append(readings, category.readings...)
		}
		c.sensorStateTest(t, member, readings)
	}

	return nil
}

// categoryReadings holds the sensor readings collected from one chassis
// sub-resource. failed marks a GET error whose failure is already
// recorded, so the count test does not report it a second time.
type categoryReadings struct {
	source   string
	failed   bool
	readings []validate.SensorReading
}

// collectReadings gathers the sensor readings from the chassis' Power and
// Thermal resources, one category per sub-resource. A missing sub-resource
// yields an empty category, which the count test fails.
func (c *Checker) collectReadings(ctx context.Context, t *checker.Target, chassis shared.Member) []categoryReadings {
	categories := make([]categoryReadings, 0, len(sensorSources))

	for _, source := range sensorSources {
		category := categoryReadings{source: source.resourceKey}

		ref, ok := chassis.Object.Object(source.resourceKey)
		if !ok {
			categories = append(categories, category)

			continue
		}
		uri, ok := ref.ODataID()
		if !ok {
			categories = append(categories, category)

			continue
		}

		obj, err := t.Service.Get(ctx, uri)
		if err != nil {
			t.Results.Add(Category, testSensorCount,
				fmt.Sprintf("Getting the '%s' resource for chassis '%s'", source.resourceKey, chassis.ID()),
				result.StatusFail,
				fmt.Sprintf("Failed to get the '%s' resource for chassis '%s' (%v).", source.resourceKey, chassis.ID(), err))
			category.failed = true
			categories = append(categories, category)

			continue
		}

		for arrayKey, readingKey := range source.arrays {
			sensors, ok := obj.Objects(arrayKey)
			if !ok {
				continue
			}
			for i, sensor := range sensors {
				if sensor == nil {
					continue
				}
				category.readings = append(category.readings, sensorReading(sensor, arrayKey, readingKey, i))
			}
		}

		categories = append(categories, category)
	}

	return categories
}

// sensorReading flattens one sensor entry into the view the validators use.
func sensorReading(sensor resource.Object, arrayKey, readingKey string, index int) validate.SensorReading {
	name := sensor.StringOr("Name", fmt.Sprintf("%s[%d]", arrayKey, index))

	state, err := resource.Query[string](sensor, ".Status.State")
	if err != nil {
		state = ""
	}

	var reading any
	if sensor.Has(readingKey) && !sensor.IsNull(readingKey) {
		reading = sensor[readingKey]
	}

	return validate.SensorReading{Name: name, State: state, Reading: reading}
}

// sensorCountTest records one result per category; a chassis must report
// at least one readable sensor in each of its Thermal and Power resources.
func (c *Checker) sensorCountTest(t *checker.Target, chassis shared.Member, categories []categoryReadings) {
	for _, category := range categories {
		if category.failed {
			continue
		}

		operation := fmt.Sprintf("Counting the '%s' sensors of chassis '%s'", category.source, chassis.ID())
		t.Logger().Infow(operation, "count", len(category.readings))

		if len(category.readings) == 0 {
			t.Results.Add(Category, testSensorCount, operation, result.StatusFail,
				fmt.Sprintf("No '%s' sensors were found in chassis '%s'.", category.source, chassis.ID()))

			continue
		}
		t.Results.Add(Category, testSensorCount, operation, result.StatusPass, "")
	}
}

func (c *Checker) sensorStateTest(t *checker.Target, chassis shared.Member, readings []validate.SensorReading) {
	for _, reading := range readings {
		operation := fmt.Sprintf("Checking the reading of sensor '%s' in chassis '%s'", reading.Name, chassis.ID())

		// Advisory: implementations may omit readings during power
		// transitions, so an enabled sensor without one only warns.
		if validate.MissingEnabledReading(reading) {
			t.Results.Add(Category, testSensorState, operation, result.StatusWarn,
				fmt.Sprintf("Sensor '%s' in chassis '%s' is enabled, but contains no reading.", reading.Name, chassis.ID()))

			continue
		}
		if reading.State == "" || reading.Reading == nil {
			continue
		}

		if !validate.PlausibleSensorReading(reading) {
			t.Results.Add(Category, testSensorState, operation, result.StatusFail,
				fmt.Sprintf("Sensor '%s' in chassis '%s' contains reading '%v', but is in state '%s'.", reading.Name, chassis.ID(), reading.Reading, reading.State))

			continue
		}
		t.Results.Add(Category, testSensorState, operation, result.StatusPass, "")
	}
}
