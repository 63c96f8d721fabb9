// stationfw is the bench soldering station's firmware entry point: it
// wires the HAL, persistence, tip catalog/calibration, unit
// controllers, power pipeline, phase machines, and hardware bus into
// one running station, then drives the cooperative foreground loop.
//
// Usage:
//
//	stationfw -storage /path/to/storage-dir [options]
//
// Options:
//
//	-storage string   Directory backing persisted files (host build only)
//	-tiptable string  Path to the tip-list text file used at first boot
//	-loglevel string  debug|info|warn|error (default "info")
//
// Grounded on AndySze-klipper/cmd/klipper-go/main.go's flag-driven boot
// sequence (parse flags, open logging, load persisted config, wire
// subsystems, run the loop) adapted from a host program dialing an MCU
// over serial to firmware bringing its own simulated or real hardware
// up directly.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sfrwmaker/station-fw/internal/calibration"
	"github.com/sfrwmaker/station-fw/internal/config"
	"github.com/sfrwmaker/station-fw/internal/diag"
	"github.com/sfrwmaker/station-fw/internal/hal"
	"github.com/sfrwmaker/station-fw/internal/hwbus"
	"github.com/sfrwmaker/station-fw/internal/persist"
	"github.com/sfrwmaker/station-fw/internal/phase"
	"github.com/sfrwmaker/station-fw/internal/pid"
	"github.com/sfrwmaker/station-fw/internal/power"
	"github.com/sfrwmaker/station-fw/internal/sched"
	"github.com/sfrwmaker/station-fw/internal/tipcatalog"
	"github.com/sfrwmaker/station-fw/internal/unit"
)

func main() {
	storageDir := flag.String("storage", "", "Directory backing persisted files (host build only)")
	tipTable := flag.String("tiptable", "", "Path to the tip-list text file used at first boot")
	logLevel := flag.String("loglevel", "info", "debug|info|warn|error")
	flag.Parse()

	level := diag.ParseLevel(*logLevel)
	sink := diag.NewSink(os.Stdout, level)
	boot := sink.With("boot")

	if *storageDir == "" {
		fmt.Fprintln(os.Stderr, "Error: -storage is required")
		flag.Usage()
		os.Exit(1)
	}

	st, err := newStation(*storageDir, *tipTable, sink)
	if err != nil {
		boot.Error("station init failed", diag.Fields{"error": err.Error()})
		os.Exit(1)
	}

	boot.Info("station ready", diag.Fields{
		"tips":    st.catalog.Len(),
		"storage": *storageDir,
	})

	st.run()
}

// station bundles every wired subsystem for one running station.
type station struct {
	diag *diag.Sink

	persistStore *persist.Store
	configStore  *config.Store
	cal          *calibration.Set
	catalog      *tipcatalog.Catalog

	hw *hwbus.Bus

	ironPID *pid.Controller
	gunPID  *pid.Controller
	iron    *unit.Controller
	gun     *unit.Controller

	pipeline *power.Pipeline

	t12Phase *phase.Machine
	gunPhase *phase.Machine

	sched *sched.Scheduler
}

func newStation(storageDir, tipTablePath string, sink *diag.Sink) (*station, error) {
	st := &station{diag: sink, sched: sched.New()}

	// A real target build backs PersistStore with a FlashBackend over
	// the on-chip SPI NOR flash instead; the host build persists to
	// plain files under -storage.
	backend := persist.FileBackend{Dir: storageDir}
	st.persistStore = persist.NewStore(backend)

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, err
	}

	st.cal = calibration.NewSet()
	st.loadCalibration()

	st.catalog = tipcatalog.New()
	if tipTablePath != "" {
		f, err := os.Open(tipTablePath)
		if err == nil {
			defer f.Close()
			_ = st.catalog.Build(f)
		}
	}

	rec := st.loadConfig()
	st.configStore = config.NewStore(rec)

	st.hw = hwbus.New()

	st.ironPID = pid.New(pid.Params{Kp: 4, Ki: 0.3, Kd: 1.2, MaxPower: 100})
	st.gunPID = pid.New(pid.Params{Kp: 3, Ki: 0.2, Kd: 0.5, MaxPower: 100})
	st.loadPIDParams()

	st.iron = unit.New(unit.Config{
		Kind: unit.KindIron, MaxInternalRaw: 3800, MaxPWM: 460,
		ConnectMinCurrent: 10, ConnectWindow: 5,
		ReachedDelta: 6, ReachedDispersion: 500,
	}, st.ironPID)
	st.gun = unit.New(unit.Config{
		Kind: unit.KindGun, MaxInternalRaw: 3800, MaxPWM: 99,
		ConnectMinCurrent: 5, ConnectWindow: 10,
		ReachedDelta: 6, ReachedDispersion: 500,
	}, st.gunPID)

	adc := hal.NewSimADC()
	pwm := hal.NewSimPWM()
	st.pipeline = power.New(adc, pwm, st.iron, st.gun, st.hw, power.Config{MaxIronPWM: 460, MaxGunPWM: 99})

	presetRaw := func(dev calibration.Device, celsius int) int {
		return st.cal.CelsiusToRaw(celsius, st.hw.AmbientTempC(), dev, false, rec.HasFlag(config.FlagSafeIronMode))
	}

	st.t12Phase = phase.New(phase.Config{
		Kind:                phase.KindT12,
		HandlePresent:       func() bool { return st.iron.IsConnected() },
		UseTilt:             true,
		LowToSeconds:        30,
		OffTimeoutSeconds:   int64(rec.AutoOffMinutes[config.DevT12]) * 60,
		IdlePowerDivergence: 150,
		CountdownWindowMs:   100_000,
		BoostDeltaC:         rec.BoostDeltaC(),
		BoostDurationS:      int64(rec.BoostDurationS()),
		PresetRaw:           func() int { return presetRaw(calibration.DeviceIron, int(st.configStore.Active().PresetC[config.DevT12])) },
		StandbyRaw:          func() int { return presetRaw(calibration.DeviceIron, int(st.configStore.Active().LowPowerTempC[config.DevT12])) },
	})
	st.t12Phase.Arm = func(raw int) { st.iron.SetTemp(raw); st.iron.SwitchPower(true) }
	st.t12Phase.Disarm = func() { st.iron.SwitchPower(false) }
	st.t12Phase.SetLowPower = st.iron.LowPowerMode
	st.t12Phase.SetBoost = st.iron.BoostPowerMode
	st.t12Phase.PersistConfig = st.saveConfigIfDirty
	st.t12Phase.Beep = func(p phase.BeepPattern) {
		sink.With("panel").Debug("beep", diag.Fields{"pattern": int(p)})
	}

	st.gunPhase = phase.New(phase.Config{
		Kind:              phase.KindGun,
		OffTimeoutSeconds: int64(rec.AutoOffMinutes[config.DevGun]) * 60,
		PresetRaw:         func() int { return int(st.configStore.Active().GunFanPreset) },
		StandbyRaw:        func() int { return 0 },
	})
	st.gunPhase.Arm = func(raw int) { st.gun.SetTemp(raw); st.gun.SwitchPower(true) }
	st.gunPhase.Disarm = func() { st.gun.SwitchPower(false) }
	st.gunPhase.SetLowPower = st.gun.LowPowerMode
	st.gunPhase.PersistConfig = st.saveConfigIfDirty

	return st, nil
}

func (st *station) loadConfig() config.ConfigRecord {
	if raw, ok := st.persistStore.Load("config.dat"); ok {
		if rec, ok := persist.DecodeConfig(raw); ok {
			return rec
		}
	}
	rec := config.Default()
	_ = st.persistStore.Save("config.dat", persist.EncodeConfig(rec))
	return rec
}

func (st *station) saveConfigIfDirty() {
	if !st.configStore.Dirty() {
		return
	}
	if err := st.persistStore.Save("config.dat", persist.EncodeConfig(st.configStore.Active())); err != nil {
		st.diag.With("persist").Errorf("save config failed", err)
		return
	}
	st.configStore.MarkSaved()
}

func (st *station) loadPIDParams() {
	maxPower := [3]float64{100, 100, 100}
	if raw, ok := st.persistStore.Load("pid.dat"); ok {
		if set, ok := persist.DecodePIDSet(raw, maxPower); ok {
			st.ironPID.SetCoefficients(set[config.DevT12])
			st.gunPID.SetCoefficients(set[config.DevGun])
			return
		}
	}
}

func (st *station) loadCalibration() {
	raw, ok := st.persistStore.Load("tipcal.dat")
	if !ok {
		return
	}
	for off := 0; off+16 <= len(raw); off += 16 {
		var buf [16]byte
		copy(buf[:], raw[off:off+16])
		name, rec, ok := persist.DecodeTipRecord(buf)
		if !ok {
			continue
		}
		st.cal.Load(calibration.DeviceFor(name.Type()), rec)
	}
}

// sampleIntervalMs and phaseTickIntervalMs are the intervals the
// periodic handlers below run at.
// A real target derives these from the mains zero-crossing interrupt
// and a hardware millisecond counter; on the host build the scheduler
// itself defines "a millisecond" as one pass through the loop.
const (
	sampleIntervalMs   = 10
	phaseTickIntervalMs = 100
)

// run drives the cooperative foreground loop: everything happens
// through the deadline scheduler, never a blocking wait, per §5. Each
// handler reschedules itself by returning its next wake tick.
func (st *station) run() {
	st.sched.Schedule(0, func(now int64) int64 {
		st.pipeline.TriggerCheckCurrent()
		return now + sampleIntervalMs
	})
	st.sched.Schedule(sampleIntervalMs/2, func(now int64) int64 {
		st.pipeline.TriggerCheckTemperature()
		st.pipeline.WriteIronPWM(float64(now))
		st.pipeline.WriteGunPWM(float64(now))
		return now + sampleIntervalMs
	})
	st.sched.Schedule(0, func(now int64) int64 {
		st.pipeline.CheckACWatchdog(now, 0)
		return now + sampleIntervalMs
	})
	st.sched.Schedule(0, func(now int64) int64 {
		st.t12Phase.Tick(now, st.iron.AvgPower())
		st.gunPhase.Tick(now, st.gun.AvgPower())
		if !st.iron.IsConnected() && st.t12Phase.Phase() != phase.Off {
			st.t12Phase.NotConnected()
		}
		return now + phaseTickIntervalMs
	})

	var nowMs int64
	for {
		st.sched.Tick(nowMs)
		nowMs++
	}
}
