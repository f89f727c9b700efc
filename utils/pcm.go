// SPDX-License-Identifier: EPL-2.0

// Package utils holds the sample conversions shared by the codecs, the
// device driver and the resampler.
package utils

// Float32ToPCM clamps x to [-1, 1] and scales it to a signed integer of
// the given bit depth (8, 16, 24 or 32).
func Float32ToPCM(x float32, bits int) int {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	switch bits {
	case 8:
		return int(x * 127.0)
	case 24:
		return int(x * 8388607.0)
	case 32:
		return int(float64(x) * 2147483647.0)
	default:
		return int(x * 32767.0)
	}
}

// PCMToFloat32 is the inverse of Float32ToPCM.
func PCMToFloat32(v int, bits int) float32 {
	switch bits {
	case 8:
		return float32(v) / 128.0
	case 24:
		return float32(v) / 8388608.0
	case 32:
		return float32(float64(v) / 2147483648.0)
	default:
		return float32(v) / 32768.0
	}
}

// AppendPCM appends src converted by Float32ToPCM to dst.
func AppendPCM(dst []int, src []float32, bits int) []int {
	for _, v := range src {
		dst = append(dst, Float32ToPCM(v, bits))
	}

	return dst
}
