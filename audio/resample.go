package audio

import "gonum.org/v1/gonum/interp"

// Resample converts samples from sourceRate to targetRate using linear
// interpolation, satisfying §3's "out = in · targetRate/sourceRate, rounded
// to nearest" sample-count contract. gonum's FFT-based mel filterbank
// (formerly ai/mel_spectrogram.go) is no longer needed now that the
// Feature Extractor is a neural preprocessor network (SPEC_FULL.md §4.2),
// so this repurposes the same gonum dependency for the resampling step §3
// calls for instead.
func Resample(samples []float32, sourceRate, targetRate int) []float32 {
	if sourceRate <= 0 || targetRate <= 0 || sourceRate == targetRate || len(samples) == 0 {
		return samples
	}

	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = float64(i)
		ys[i] = float64(s)
	}

	var lin interp.Linear
	if err := lin.Fit(xs, ys); err != nil {
		// Degenerate input (e.g. a single sample): nothing to interpolate.
		return samples
	}

	ratio := float64(targetRate) / float64(sourceRate)
	outLen := int(float64(len(samples))*ratio + 0.5)
	if outLen < 1 {
		outLen = 1
	}

	lastX := xs[len(xs)-1]
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		srcX := float64(i) / ratio
		if srcX > lastX {
			srcX = lastX
		}
		out[i] = float32(lin.Predict(srcX))
	}
	return out
}
