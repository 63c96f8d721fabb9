package pid

import "math"

// relayStableFraction bounds how much a period's peak-to-trough
// amplitude may differ from the previous period's and still count as
// "stable" — the oscillation is judged to have settled once enough
// consecutive periods agree within this fraction.
const relayStableFraction = 0.10

const (
	minStablePeriods = 16
	maxTotalPeriods  = 24
)

// TuneResult is the outcome of a completed (accepted or rejected)
// auto-tune run.
type TuneResult struct {
	Accepted bool
	Ku, Tu   float64
	Params   Params
}

// tuner drives the relay-oscillation experiment described in §4.4: the
// commanded power alternates between basePwr+deltaPwr and
// basePwr-deltaPwr every time the process variable crosses
// setpoint±hysteresis, and the resulting oscillation's amplitude and
// period yield Ku/Tu via the describing-function relation.
type tuner struct {
	setpoint  float64
	basePwr   float64
	deltaPwr  float64
	hyst      float64
	maxPower  float64

	high      bool
	havePV    bool
	lastT     float64
	periodT0  float64
	periodMax float64
	periodMin float64
	haveExtr  bool

	periodLens  []float64
	amplitudes  []float64
	stableCount int
}

// BeginAutoTune starts a relay-oscillation auto-tune experiment. Until
// the tune completes, AutoTuneStep supplies the relay output (not the
// normal PID law) for the caller to apply.
func (c *Controller) BeginAutoTune(setpoint, basePwr, deltaPwr, hysteresis, maxPower float64) {
	c.tune = &tuner{
		setpoint: setpoint,
		basePwr:  basePwr,
		deltaPwr: deltaPwr,
		hyst:     hysteresis,
		maxPower: maxPower,
		high:     true,
	}
}

// AutoTuning reports whether a relay experiment is in progress.
func (c *Controller) AutoTuning() bool { return c.tune != nil }

// AutoTuneStep feeds one process-variable sample into the in-progress
// relay experiment. It returns the relay power to apply and, once the
// experiment concludes (enough stable periods observed, or the period
// cap reached), a non-nil TuneResult. The caller must stop invoking
// AutoTuneStep once a result is returned. AutoTuneStep never changes
// the controller's coefficients; an accepted result carries the new
// ones in its Params.
func (c *Controller) AutoTuneStep(t, pv float64) (power float64, result *TuneResult) {
	tu := c.tune
	if tu == nil {
		return 0, nil
	}

	if !tu.havePV {
		tu.havePV = true
		tu.lastT = t
		tu.periodT0 = t
		tu.periodMax = pv
		tu.periodMin = pv
		tu.haveExtr = true
	} else {
		if pv > tu.periodMax {
			tu.periodMax = pv
		}
		if pv < tu.periodMin {
			tu.periodMin = pv
		}
	}

	crossedUp := tu.high && pv >= tu.setpoint+tu.hyst
	crossedDown := !tu.high && pv <= tu.setpoint-tu.hyst

	if crossedUp || crossedDown {
		if tu.high {
			// Completed a half-cycle; a full period is every other
			// crossing (high->low->high).
			tu.high = false
		} else {
			period := t - tu.periodT0
			amplitude := (tu.periodMax - tu.periodMin) / 2

			tu.periodLens = append(tu.periodLens, period)
			tu.amplitudes = append(tu.amplitudes, amplitude)

			if n := len(tu.amplitudes); n >= 2 {
				prev := tu.amplitudes[n-2]
				if prev > 0 && math.Abs(amplitude-prev)/prev <= relayStableFraction {
					tu.stableCount++
				} else {
					tu.stableCount = 0
				}
			}

			tu.periodT0 = t
			tu.periodMax = pv
			tu.periodMin = pv
			tu.high = true

			total := len(tu.amplitudes)
			if tu.stableCount >= minStablePeriods || total >= maxTotalPeriods {
				result = tu.finish()
				c.tune = nil
			}
		}
	}

	if tu.high {
		power = tu.basePwr + tu.deltaPwr
	} else {
		power = tu.basePwr - tu.deltaPwr
	}
	return math.Max(0, math.Min(tu.maxPower, power)), result
}

func (tu *tuner) finish() *TuneResult {
	n := len(tu.amplitudes)
	if n == 0 {
		return &TuneResult{Accepted: false}
	}

	// Average the last few periods, where the oscillation is most
	// likely to have settled, rather than the whole run.
	window := n
	if window > 8 {
		window = 8
	}
	var sumA, sumT float64
	for i := n - window; i < n; i++ {
		sumA += tu.amplitudes[i]
		sumT += tu.periodLens[i]
	}
	amplitude := sumA / float64(window)
	period := sumT / float64(window)

	if amplitude <= tu.hyst {
		return &TuneResult{Accepted: false}
	}

	denom := math.Pi * math.Sqrt(amplitude*amplitude-tu.hyst*tu.hyst)
	if denom <= 0 {
		return &TuneResult{Accepted: false}
	}
	ku := 4 * tu.deltaPwr / denom
	tuPeriod := period

	return &TuneResult{
		Accepted: true,
		Ku:       ku,
		Tu:       tuPeriod,
		Params:   ZieglerNichols(ku, tuPeriod, tu.maxPower),
	}
}
