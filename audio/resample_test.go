package audio

import "testing"

func TestResample_PreservesLengthAtSameRate(t *testing.T) {
	in := []float32{0, 1, 2, 3, 4}
	out := Resample(in, TargetSampleRate, TargetSampleRate)
	if len(out) != len(in) {
		t.Fatalf("expected identity length %d, got %d", len(in), len(out))
	}
}

func TestResample_Upsamples(t *testing.T) {
	in := make([]float32, 80) // 10ms at 8kHz
	for i := range in {
		in[i] = float32(i)
	}
	out := Resample(in, 8000, 16000)

	// round(80*16000/8000) = 160, allow the ±1 tolerance of the resampling
	// sample-count contract.
	if out == nil || len(out) < 159 || len(out) > 161 {
		t.Fatalf("expected ~160 samples, got %d", len(out))
	}
}

func TestResample_Downsamples(t *testing.T) {
	in := make([]float32, 160) // 10ms at 16kHz
	out := Resample(in, 16000, 8000)
	if len(out) < 79 || len(out) > 81 {
		t.Fatalf("expected ~80 samples, got %d", len(out))
	}
}

func TestResample_EmptyInput(t *testing.T) {
	out := Resample(nil, 8000, 16000)
	if len(out) != 0 {
		t.Fatalf("expected empty output for empty input, got %d", len(out))
	}
}
