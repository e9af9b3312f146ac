// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver_test

import (
	"testing"

	"github.com/gviegas/splatsort/driver"
)

type fakeDriver struct{ name string }

func (d *fakeDriver) Open() (driver.GPU, error) { return nil, nil }
func (d *fakeDriver) Name() string              { return d.name }
func (d *fakeDriver) Close()                    {}

func TestRegister(t *testing.T) {
	before := len(driver.Drivers())

	d1 := &fakeDriver{name: "test-driver-register"}
	driver.Register(d1)
	drvs := driver.Drivers()
	if len(drvs) != before+1 {
		t.Fatalf("Drivers: want %d entries, got %d", before+1, len(drvs))
	}

	var found driver.Driver
	for _, d := range drvs {
		if d.Name() == d1.Name() {
			found = d
		}
	}
	if found != driver.Driver(d1) {
		t.Fatal("Drivers: registered driver not found by name")
	}

	// Registering a second driver under the same name must
	// replace the first, not append a duplicate entry.
	d2 := &fakeDriver{name: "test-driver-register"}
	driver.Register(d2)
	drvs = driver.Drivers()
	if len(drvs) != before+1 {
		t.Fatalf("Drivers: want %d entries after replace, got %d", before+1, len(drvs))
	}
	for _, d := range drvs {
		if d.Name() == d2.Name() && d != driver.Driver(d2) {
			t.Fatal("Register: stale driver not replaced")
		}
	}
}

func TestDriversIsACopy(t *testing.T) {
	driver.Register(&fakeDriver{name: "test-driver-copy"})
	drvs := driver.Drivers()
	n := len(drvs)
	drvs = append(drvs, &fakeDriver{name: "test-driver-copy-extra"})
	if len(driver.Drivers()) != n {
		t.Fatal("Drivers: caller mutation of returned slice leaked into registry")
	}
}
