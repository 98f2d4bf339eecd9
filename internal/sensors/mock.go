package sensors

import (
	"math"
	"strconv"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/gas_datalogger/internal/reading"
)

// heaterSteps is the length of the synthetic heater profile.
const heaterSteps = 10

// Mock is a synthetic BME688-like device for bench runs without hardware.
type Mock struct {
	Seed float64
	n    int
}

func (m *Mock) Sense(e *physic.Env) error {
	m.n++
	x := float64(m.n)/30 + m.Seed
	e.Temperature = physic.ZeroCelsius + physic.Temperature((22+2*math.Sin(x))*float64(physic.Kelvin))
	e.Pressure = physic.Pressure((101325 + 150*math.Cos(x)) * float64(physic.Pascal))
	e.Humidity = physic.RelativeHumidity((45 + 5*math.Sin(x/2)) * float64(physic.PercentRH))
	return nil
}

func (m *Mock) SenseGas() (float64, uint8, error) {
	step := uint8(m.n % heaterSteps)
	// Resistance drops as the plate heats up along the profile.
	return 200000 / float64(step+1), step, nil
}

// NewMock returns a scheduler over n synthetic sensors.
func NewMock(n int, mode reading.Mode) *Scheduler {
	s := &Scheduler{}
	for i := 0; i < n; i++ {
		s.sensors = append(s.sensors, Sensor{
			Index: uint8(i),
			ID:    SensorID("mock" + strconv.Itoa(i)),
			Mode:  mode,
			Dev:   &Mock{Seed: float64(i)},
			Humid: true,
		})
	}
	return s
}
