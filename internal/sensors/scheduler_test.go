package sensors

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/gas_datalogger/internal/clock"
	"github.com/relabs-tech/gas_datalogger/internal/reading"
	"github.com/relabs-tech/gas_datalogger/internal/status"
)

type fakeDev struct {
	env    physic.Env
	err    error
	gasErr error
}

func (f *fakeDev) Sense(e *physic.Env) error {
	if f.err != nil {
		return f.err
	}
	*e = f.env
	return nil
}

type fakeGasDev struct {
	fakeDev
}

func (f *fakeGasDev) SenseGas() (float64, uint8, error) {
	return 12345, 4, f.gasErr
}

func env(celsius, pascal, percent float64) physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(celsius*float64(physic.Kelvin)),
		Pressure:    physic.Pressure(pascal * float64(physic.Pascal)),
		Humidity:    physic.RelativeHumidity(percent * float64(physic.PercentRH)),
	}
}

func TestRound(t *testing.T) {
	clk := &clock.Fixed{Boot: time.Second, Wall: time.Unix(1654153509, 0), Step: 10 * time.Millisecond}
	s := NewScheduler(
		Sensor{Index: 0, ID: 11, Mode: reading.Parallel, Dev: &fakeDev{env: env(21, 100000, 40)}, Humid: true},
		Sensor{Index: 1, ID: 12, Mode: reading.Parallel, Dev: &fakeDev{err: errors.New("i/o timeout")}, Humid: true},
		Sensor{Index: 2, ID: 13, Mode: reading.Continuous, Dev: &fakeDev{env: env(20, 99000, 0)}},
		Sensor{Index: 3, ID: 14, Mode: reading.Parallel, Dev: &fakeGasDev{fakeDev{env: env(25, 101000, 50)}}, Humid: true},
		Sensor{Index: 4, ID: 15, Mode: reading.Parallel, Dev: &fakeGasDev{fakeDev{env: env(25, 101000, 50), gasErr: errors.New("heater")}}, Humid: true},
	)

	got := s.Round(clk)
	if len(got) != s.Len() {
		t.Fatalf("Expected %d readings but got %d", s.Len(), len(got))
	}

	for i, r := range got {
		if r.Index == nil || int(*r.Index) != i {
			t.Errorf("reading %d: expected index %d but got %v", i, i, r.Index)
		}
		if r.Unix != 1654153509 {
			t.Errorf("reading %d: expected unix time to be stamped, got %d", i, r.Unix)
		}
	}

	verifyClose(t, "temperature", got[0].Temperature, 21)
	verifyClose(t, "pressure", got[0].Pressure, 100000)
	verifyClose(t, "humidity", got[0].Humidity, 40)
	if got[0].Status != 0 || got[0].GasResistance != nil {
		t.Errorf("Expected a plain ok reading but got %+v", got[0])
	}

	failed := got[1]
	if failed.Status != int(status.SensorReadError) {
		t.Errorf("Expected SensorReadError but got %d", failed.Status)
	}
	if failed.Temperature != nil || failed.Pressure != nil || failed.SensorID == nil || *failed.SensorID != 12 {
		t.Errorf("Expected null data with identity kept but got %+v", failed)
	}

	if got[2].Humidity != nil {
		t.Errorf("Expected null humidity for a chip without humidity channel")
	}
	if s := got[2].ScanEnabled(); s == nil || *s != 0 {
		t.Errorf("Expected scanning disabled in continuous mode")
	}

	if got[3].GasResistance == nil || *got[3].GasResistance != 12345 || got[3].HeaterStep == nil || *got[3].HeaterStep != 4 {
		t.Errorf("Expected gas columns but got %+v", got[3])
	}
	if got[4].Status != int(status.SensorReadError) || got[4].GasResistance != nil {
		t.Errorf("Expected gas failure to be reported but got %+v", got[4])
	}
}

func verifyClose(t *testing.T, what string, got *float64, want float64) {
	t.Helper()
	if got == nil {
		t.Fatalf("Expected %s %v but got null", what, want)
	}
	if d := *got - want; d > 1e-6 || d < -1e-6 {
		t.Errorf("Expected %s %v but got %v", what, want, *got)
	}
}

func TestMock(t *testing.T) {
	s := NewMock(8, reading.Parallel)
	clk := &clock.Fixed{}

	seen := map[uint32]bool{}
	for round := 0; round < 3; round++ {
		for _, r := range s.Round(clk) {
			if r.Status != 0 || r.Temperature == nil || r.GasResistance == nil || r.HeaterStep == nil {
				t.Fatalf("Expected a complete reading but got %+v", r)
			}
			if *r.HeaterStep >= heaterSteps {
				t.Fatalf("Expected heater step below %d but got %d", heaterSteps, *r.HeaterStep)
			}
			if *r.Pressure < 100000 || *r.Pressure > 103000 {
				t.Fatalf("Expected a plausible pressure but got %v", *r.Pressure)
			}
			seen[*r.SensorID] = true
		}
	}
	if len(seen) != 8 {
		t.Errorf("Expected 8 distinct sensor ids but got %d", len(seen))
	}
}

func TestSensorIDStable(t *testing.T) {
	if SensorID("/dev/spidev0.0") != SensorID("/dev/spidev0.0") {
		t.Fatal("Expected identical addresses to give identical ids")
	}
	if SensorID("/dev/spidev0.0") == SensorID("/dev/spidev0.1") {
		t.Fatal("Expected distinct addresses to give distinct ids")
	}
}

func TestCloseRunsInReverse(t *testing.T) {
	var order []int
	s := &Scheduler{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return errors.New("busy") },
	}}
	if err := s.Close(); err == nil {
		t.Fatal("Expected the closer error to be returned")
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("Expected reverse order but got %v", order)
	}
}
