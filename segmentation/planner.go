package segmentation

// InternalRate is the analysis rate the decimator aims for.
const InternalRate = 11025

// PlanDecimation returns the decimation factor for inputRate: the floor of
// inputRate/internalRate (at least 1), raised to a power of two, and capped
// at maxFactor. maxFactor values below 1 are treated as 1.
func PlanDecimation(inputRate, internalRate, maxFactor int) int {
	if internalRate <= 0 {
		return 1
	}

	factor := inputRate / internalRate
	if factor < 1 {
		factor = 1
	}

	for factor&(factor-1) != 0 {
		factor++
	}

	if factor > maxFactor {
		factor = max(maxFactor, 1)
	}
	return factor
}
