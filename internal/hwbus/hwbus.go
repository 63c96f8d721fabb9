// Package hwbus implements HardwareBus: the ambient/Vref/MCU-temp
// estimator and the panel switch debouncer (§4.8).
//
// The ambient estimator's EMA tracking is grounded on
// AndySze-klipper/pkg/endstop/endstop.go's EndstopState pattern,
// generalized from a binary trigger state to a debounced level with a
// cached derived value. The dual-mode Celsius conversion (Steinhart-Hart
// thermistor vs MCU-internal V25/AvgSlope) is grounded on
// AndySze-klipper/pkg/temperature/sensors.go's ThermistorSensor Beta
// equation.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package hwbus

import "math"

const emaAlpha = 0.2

// noHandleThreshold is the raw ambient reading above which the bench
// has no handle-mounted thermistor connected — a floating ADC line
// saturates near full scale (§4.8).
const noHandleThreshold = 3900

// adcFullScale is the 12-bit ADC's full-scale raw count.
const adcFullScale = 4095

// Thermistor divider constants for the handle's 10 kOhm NTC, beta 3950,
// against a 10 kOhm pull-up (§4.8).
const (
	thermistorR25   = 10000.0
	thermistorBeta  = 3950.0
	pullupR         = 10000.0
	kelvinOffset    = 273.15
	room25Kelvin    = 25 + kelvinOffset
)

// MCU-internal-sensor calibration constants (vendor datasheet V25 in
// millivolts at 3.3 V reference, AvgSlope in mV/degC, and the internal
// reference's nominal raw ADC count at that same 3.3 V supply) used
// when no handle thermistor is present.
const (
	mcuV25           = 1430.0
	mcuAvgSlope      = 4.3
	vrefNominalRaw   = 1489.0
	vrefNominalVolts = 3300.0
)

// recomputeDeltaRaw is the minimum raw-count change since the last
// cached conversion that forces a recompute (~1 degC worth of counts,
// §4.8): the thermistor divider gives about 45 counts per degC near
// 25 degC.
const recomputeDeltaRaw = 45

// Bus holds the three ambient-adjacent EMAs and their cached Celsius
// conversions.
type Bus struct {
	ambientEMA float64
	vrefEMA    float64
	mcuTempEMA float64

	haveAmbient bool
	haveVref    bool
	haveMCU     bool

	cachedRaw int
	cachedC   int
	haveCache bool
}

// New creates an empty Bus.
func New() *Bus { return &Bus{} }

// UpdateAmbient feeds one raw ambient-thermistor ADC sample.
func (b *Bus) UpdateAmbient(raw int) {
	b.feed(&b.ambientEMA, &b.haveAmbient, raw)
}

// UpdateVref feeds one raw Vref_int ADC sample.
func (b *Bus) UpdateVref(raw int) {
	b.feed(&b.vrefEMA, &b.haveVref, raw)
}

// UpdateMCUTemp feeds one raw MCU-internal-temperature ADC sample.
func (b *Bus) UpdateMCUTemp(raw int) {
	b.feed(&b.mcuTempEMA, &b.haveMCU, raw)
}

func (b *Bus) feed(ema *float64, have *bool, raw int) {
	if !*have {
		*ema = float64(raw)
		*have = true
		return
	}
	*ema += emaAlpha * (float64(raw) - *ema)
}

// AmbientTempC returns the current ambient temperature estimate in
// whole degrees Celsius, switching between the handle thermistor and
// the MCU-internal fallback depending on whether a handle is present
// (§4.8). The result is cached and only recomputed once the raw
// ambient reading has moved enough to plausibly change the rounded
// Celsius value.
func (b *Bus) AmbientTempC() int {
	raw := int(b.ambientEMA)

	if b.haveCache {
		delta := raw - b.cachedRaw
		if delta < 0 {
			delta = -delta
		}
		if delta < recomputeDeltaRaw {
			return b.cachedC
		}
	}

	var c int
	if raw >= noHandleThreshold {
		c = b.mcuAmbientC()
	} else {
		c = steinhartHart(raw)
	}

	b.cachedRaw = raw
	b.cachedC = c
	b.haveCache = true
	return c
}

// steinhartHart converts a raw ADC reading from a 10 kOhm NTC (beta
// 3950) in a divider against a 10 kOhm pull-up, referenced to the ADC's
// 12-bit full scale, into whole-degree Celsius.
func steinhartHart(raw int) int {
	if raw <= 0 {
		raw = 1
	}
	if raw >= adcFullScale {
		raw = adcFullScale - 1
	}
	r := pullupR * float64(raw) / float64(adcFullScale-raw)
	invT := 1/room25Kelvin + math.Log(r/thermistorR25)/thermistorBeta
	kelvin := 1 / invT
	return int(math.Round(kelvin - kelvinOffset))
}

// mcuAmbientC converts the MCU-internal temperature sensor reading,
// Vref-compensated against the measured Vref_int raw sample, into whole
// degree Celsius using the vendor V25/AvgSlope linear model.
func (b *Bus) mcuAmbientC() int {
	actualVdda := vrefNominalVolts
	if b.haveVref && b.vrefEMA > 0 {
		actualVdda = vrefNominalVolts * vrefNominalRaw / b.vrefEMA
	}
	sampleMv := b.mcuTempEMA / adcFullScale * actualVdda
	celsius := (mcuV25-sampleMv)/mcuAvgSlope + 25
	return int(math.Round(celsius))
}
