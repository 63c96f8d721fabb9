// bench-sim exercises the PID auto-tune loop against a simulated
// first-order-plus-dead-time thermal plant, described by a YAML
// scenario file, without any real hardware attached.
//
// Usage:
//
//	bench-sim -scenario plant.yaml
//
// A scenario looks like:
//
//	ambient_c: 24
//	thermal_mass: 8.0      # larger = slower to heat
//	dead_time_ms: 400      # transport delay between duty change and effect
//	loss_coeff: 0.02       # heat lost to ambient per tick per degree over ambient
//	tick_ms: 250
//	setpoint_c: 320
//	base_power: 40
//	delta_power: 30
//	hysteresis_c: 2
//	max_power: 100
//	max_ticks: 4000
//
// Grounded on gopkg.in/yaml.v3, used the same way
// tamzrod-modbus-replicator and itohio-golpm load their fixture/config
// files, and on AndySze-klipper/cmd/klipper-go/main.go's flag-driven
// CLI shape.
package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sfrwmaker/station-fw/internal/pid"
)

// scenario is the YAML-decoded description of one simulated plant and
// the auto-tune run to exercise against it.
type scenario struct {
	AmbientC    float64 `yaml:"ambient_c"`
	ThermalMass float64 `yaml:"thermal_mass"`
	DeadTimeMs  int     `yaml:"dead_time_ms"`
	LossCoeff   float64 `yaml:"loss_coeff"`
	TickMs      int64   `yaml:"tick_ms"`

	SetpointC   float64 `yaml:"setpoint_c"`
	BasePower   float64 `yaml:"base_power"`
	DeltaPower  float64 `yaml:"delta_power"`
	HysteresisC float64 `yaml:"hysteresis_c"`
	MaxPower    float64 `yaml:"max_power"`
	MaxTicks    int     `yaml:"max_ticks"`
}

func defaultScenario() scenario {
	return scenario{
		AmbientC: 24, ThermalMass: 8.0, DeadTimeMs: 400, LossCoeff: 0.02, TickMs: 250,
		SetpointC: 320, BasePower: 40, DeltaPower: 30, HysteresisC: 2, MaxPower: 100,
		MaxTicks: 4000,
	}
}

// plant is a first-order-plus-dead-time thermal simulation: duty
// applied now shows up DeadTimeMs/TickMs ticks later (at least one),
// scaled by 10/ThermalMass, and heat bleeds off toward ambient at
// LossCoeff * (temp - ambient) per tick.
type plant struct {
	sc       scenario
	tempC    float64
	dutyHist []float64
}

func newPlant(sc scenario) *plant {
	return &plant{sc: sc, tempC: sc.AmbientC}
}

func (p *plant) step(dutyPct float64) float64 {
	p.dutyHist = append(p.dutyHist, dutyPct)
	lagTicks := p.sc.DeadTimeMs / int(p.sc.TickMs)
	if lagTicks < 1 {
		lagTicks = 1
	}
	effectiveDuty := 0.0
	if idx := len(p.dutyHist) - 1 - lagTicks; idx >= 0 {
		effectiveDuty = p.dutyHist[idx]
	}

	gain := effectiveDuty / 100.0 * (10.0 / p.sc.ThermalMass)
	loss := p.sc.LossCoeff * (p.tempC - p.sc.AmbientC)
	p.tempC += gain - loss
	return p.tempC
}

func main() {
	scenarioPath := flag.String("scenario", "", "Path to a YAML scenario file (default: built-in scenario)")
	flag.Parse()

	sc := defaultScenario()
	if *scenarioPath != "" {
		buf, err := os.ReadFile(*scenarioPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading scenario: %v\n", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(buf, &sc); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing scenario: %v\n", err)
			os.Exit(1)
		}
	}

	pl := newPlant(sc)
	ctrl := pid.New(pid.Params{MaxPower: sc.MaxPower})
	ctrl.BeginAutoTune(sc.SetpointC, sc.BasePower, sc.DeltaPower, sc.HysteresisC, sc.MaxPower)

	var t int64
	var result *pid.TuneResult
	for i := 0; i < sc.MaxTicks && ctrl.AutoTuning(); i++ {
		t += sc.TickMs
		temp := pl.step(0) // placeholder duty for the first call, overwritten below
		duty, r := ctrl.AutoTuneStep(float64(t)/1000.0, temp)
		pl.dutyHist[len(pl.dutyHist)-1] = duty
		if r != nil {
			result = r
			break
		}
	}

	if result == nil {
		fmt.Println("auto-tune did not converge within max_ticks")
		os.Exit(1)
	}

	fmt.Printf("accepted=%v ku=%.4f tu=%.3f  Kp=%.4f Ki=%.4f Kd=%.4f\n",
		result.Accepted, result.Ku, result.Tu,
		result.Params.Kp, result.Params.Ki, result.Params.Kd)

	if !result.Accepted {
		os.Exit(1)
	}
}
