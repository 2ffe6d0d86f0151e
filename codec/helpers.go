package codec

import (
	"math"
	"time"
)

func float64FromBits(bits uint64) float64 { return math.Float64frombits(bits) }

func nanosToUTC(ns int64) time.Time { return time.Unix(0, ns).UTC() }
