package linker

import "math"

// Fixed-point helpers for the math operators. Values are 16.16 fixed point
// and angles are measured in turns, 1.0 being a full circle.

const fixedOne = 1 << 16

func toFloat(v int32) float64 {
	return float64(v) / fixedOne
}

// fromFloat rounds f to 16.16, saturating at the int32 limits.
func fromFloat(f float64) int32 {
	f = math.Round(f * fixedOne)
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

func turnsToRadians(v int32) float64 {
	return toFloat(v) * 2 * math.Pi
}

func radiansToTurns(r float64) int32 {
	return fromFloat(r / (2 * math.Pi))
}

func fixedMul(a, b int32) int32 {
	return int32((int64(a) * int64(b)) >> 16)
}

func fixedDiv(a, b int32) (int32, bool) {
	if b == 0 {
		return 0, false
	}
	q := (int64(a) << 16) / int64(b)
	if q > math.MaxInt32 || q < math.MinInt32 {
		return 0, false
	}
	return int32(q), true
}

func fixedUnary(code OpCode, v int32) (int32, bool) {
	switch code {
	case OpSin:
		return fromFloat(math.Sin(turnsToRadians(v))), true
	case OpCos:
		return fromFloat(math.Cos(turnsToRadians(v))), true
	case OpTan:
		return fromFloat(math.Tan(turnsToRadians(v))), true
	case OpAsin, OpAcos:
		x := toFloat(v)
		if x < -1 || x > 1 {
			return 0, false
		}
		if code == OpAsin {
			return radiansToTurns(math.Asin(x)), true
		}
		return radiansToTurns(math.Acos(x)), true
	case OpAtan:
		return radiansToTurns(math.Atan(toFloat(v))), true
	}
	return 0, false
}

func fixedAtan2(y, x int32) int32 {
	return radiansToTurns(math.Atan2(toFloat(y), toFloat(x)))
}
