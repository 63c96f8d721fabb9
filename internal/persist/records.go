package persist

import (
	"github.com/sfrwmaker/station-fw/internal/calibration"
	"github.com/sfrwmaker/station-fw/internal/config"
	"github.com/sfrwmaker/station-fw/internal/pid"
	"github.com/sfrwmaker/station-fw/internal/radix"
)

const configPayloadLen = 53

// EncodeConfig serializes a ConfigRecord to its fixed on-flash layout
// (§3/§6), not including the trailing CRC that Store.Save appends.
func EncodeConfig(r config.ConfigRecord) []byte {
	buf := make([]byte, configPayloadLen)
	i := 0
	for _, v := range r.PresetC {
		putBe16(buf[i:], uint16(v))
		i += 2
	}
	putBe16(buf[i:], uint16(r.GunFanPreset))
	i += 2
	putBe32(buf[i:], r.TipT12.Packed())
	i += 4
	putBe32(buf[i:], r.TipJBC.Packed())
	i += 4
	for _, v := range r.AutoOffMinutes {
		buf[i] = v
		i++
	}
	for _, v := range r.LowPowerTempC {
		putBe16(buf[i:], uint16(v))
		i += 2
	}
	for _, v := range r.LowPowerTimeoutS {
		putBe16(buf[i:], v)
		i += 2
	}
	buf[i] = r.Boost
	i++
	putBe16(buf[i:], r.Flags)
	i += 2
	buf[i] = r.DisplayBrightness
	i++
	putBe16(buf[i:], r.DisplayRotation)
	i += 2
	copy(buf[i:i+len(r.Language)], r.Language[:])
	i += len(r.Language)
	return buf
}

// DecodeConfig is the inverse of EncodeConfig.
func DecodeConfig(buf []byte) (config.ConfigRecord, bool) {
	if len(buf) != configPayloadLen {
		return config.ConfigRecord{}, false
	}
	var r config.ConfigRecord
	i := 0
	for k := range r.PresetC {
		r.PresetC[k] = int16(be16(buf[i:]))
		i += 2
	}
	r.GunFanPreset = int16(be16(buf[i:]))
	i += 2
	r.TipT12 = radix.FromPacked(be32(buf[i:]))
	i += 4
	r.TipJBC = radix.FromPacked(be32(buf[i:]))
	i += 4
	for k := range r.AutoOffMinutes {
		r.AutoOffMinutes[k] = buf[i]
		i++
	}
	for k := range r.LowPowerTempC {
		r.LowPowerTempC[k] = int16(be16(buf[i:]))
		i += 2
	}
	for k := range r.LowPowerTimeoutS {
		r.LowPowerTimeoutS[k] = be16(buf[i:])
		i += 2
	}
	r.Boost = buf[i]
	i++
	r.Flags = be16(buf[i:])
	i += 2
	r.DisplayBrightness = buf[i]
	i++
	r.DisplayRotation = be16(buf[i:])
	i += 2
	copy(r.Language[:], buf[i:i+len(r.Language)])
	return r, true
}

const pidSetPayloadLen = 3 * 3 * 2 // t12, jbc, gun x Kp/Ki/Kd x uint16 fixed-point

// PIDFixedPointScale converts between the 16-bit fixed-point
// coefficients persisted on flash (§3: "unsigned 16-bit fixed-point
// coefficients") and the floating-point values pid.Params works with.
const PIDFixedPointScale = 1000.0

// EncodePIDSet serializes the three devices' PID coefficients (t12,
// jbc, gun order, matching pid.dat's layout in §6).
func EncodePIDSet(params [3]pid.Params) []byte {
	buf := make([]byte, pidSetPayloadLen)
	i := 0
	for _, p := range params {
		putBe16(buf[i:], toFixed(p.Kp))
		putBe16(buf[i+2:], toFixed(p.Ki))
		putBe16(buf[i+4:], toFixed(p.Kd))
		i += 6
	}
	return buf
}

// DecodePIDSet is the inverse of EncodePIDSet. maxPower is applied to
// every decoded Params since it is not itself persisted (§3: only
// Kp/Ki/Kd are stored; MaxPower is a unit-specific runtime constant).
func DecodePIDSet(buf []byte, maxPower [3]float64) ([3]pid.Params, bool) {
	var out [3]pid.Params
	if len(buf) != pidSetPayloadLen {
		return out, false
	}
	i := 0
	for d := 0; d < 3; d++ {
		out[d] = pid.Params{
			Kp:       fromFixed(be16(buf[i:])),
			Ki:       fromFixed(be16(buf[i+2:])),
			Kd:       fromFixed(be16(buf[i+4:])),
			MaxPower: maxPower[d],
		}
		i += 6
	}
	return out, true
}

func toFixed(v float64) uint16 {
	scaled := v * PIDFixedPointScale
	if scaled < 0 {
		scaled = 0
	}
	if scaled > 0xFFFF {
		scaled = 0xFFFF
	}
	return uint16(scaled)
}

func fromFixed(v uint16) float64 { return float64(v) / PIDFixedPointScale }

// tipRecordLen is the on-flash tip calibration record size (§6): 4 raw
// readings (uint16 each), a packed RadixName, a 1-byte ambient, 2
// reserved bytes, and a 1-byte CRC.
const tipRecordLen = 16

// EncodeTipRecord serializes one tip's name and calibration record into
// its 16-byte on-flash form, including the trailing 1-byte CRC (the
// per-tip CRC is truncated to 8 bits, unlike config.dat/pid.dat's
// 16-bit CRC, per §6's "1-byte CRC" wording).
func EncodeTipRecord(name radix.RadixName, rec calibration.Record) [tipRecordLen]byte {
	var buf [tipRecordLen]byte
	for i, v := range rec.C {
		putBe16(buf[i*2:], uint16(v))
	}
	putBe32(buf[8:], name.Packed())
	buf[12] = byte(rec.Ambient)
	// buf[13], buf[14] reserved
	crc := crc16CCITT(buf[:15])
	buf[15] = byte(crc)
	return buf
}

// DecodeTipRecord is the inverse of EncodeTipRecord. ok is false if the
// 1-byte CRC does not verify.
func DecodeTipRecord(buf [tipRecordLen]byte) (name radix.RadixName, rec calibration.Record, ok bool) {
	crc := crc16CCITT(buf[:15])
	if byte(crc) != buf[15] {
		return radix.RadixName{}, calibration.Record{}, false
	}
	for i := range rec.C {
		rec.C[i] = int(be16(buf[i*2:]))
	}
	name = radix.FromPacked(be32(buf[8:]))
	rec.Ambient = int(int8(buf[12]))
	return name, rec, true
}

func putBe16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}
