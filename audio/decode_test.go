package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildWAV assembles a minimal RIFF/WAVE buffer with one fmt chunk and one
// data chunk, for decoder tests that don't need a real audio file.
func buildWAV(t *testing.T, audioFormat, numChannels uint16, sampleRate uint32, bitsPerSample uint16, data []byte) []byte {
	t.Helper()

	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, audioFormat)
	binary.Write(&fmtChunk, binary.LittleEndian, numChannels)
	binary.Write(&fmtChunk, binary.LittleEndian, sampleRate)
	byteRate := sampleRate * uint32(numChannels) * uint32(bitsPerSample) / 8
	binary.Write(&fmtChunk, binary.LittleEndian, byteRate)
	blockAlign := numChannels * bitsPerSample / 8
	binary.Write(&fmtChunk, binary.LittleEndian, blockAlign)
	binary.Write(&fmtChunk, binary.LittleEndian, bitsPerSample)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	var riffSize uint32 = 4 + 8 + uint32(fmtChunk.Len()) + 8 + uint32(len(data))
	binary.Write(&buf, binary.LittleEndian, riffSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(fmtChunk.Len()))
	buf.Write(fmtChunk.Bytes())

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	return buf.Bytes()
}

func int16LEBytes(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestDecodeWAV_MonoPCM16(t *testing.T) {
	wav := buildWAV(t, formatPCM, 1, TargetSampleRate, 16, int16LEBytes(0, 16384, -16384, 32767))

	buf, format, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(buf) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(buf))
	}
	if format.SampleRate != TargetSampleRate {
		t.Errorf("expected sample rate %d, got %d", TargetSampleRate, format.SampleRate)
	}
	if buf[1] <= 0 || buf[2] >= 0 {
		t.Errorf("expected sign-correct samples, got %v", buf)
	}
}

func TestDecodeWAV_StereoDownmix(t *testing.T) {
	// Two channels, one frame: left=32767, right=-32768 should average near 0.
	wav := buildWAV(t, formatPCM, 2, TargetSampleRate, 16, int16LEBytes(32767, -32768))

	buf, _, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(buf) != 1 {
		t.Fatalf("expected 1 downmixed frame, got %d", len(buf))
	}
	if buf[0] < -0.01 || buf[0] > 0.01 {
		t.Errorf("expected near-zero downmix, got %v", buf[0])
	}
}

func TestDecodeWAV_Resamples(t *testing.T) {
	wav := buildWAV(t, formatPCM, 1, 8000, 16, int16LEBytes(0, 1000, 2000, 3000, 4000, 5000, 6000, 7000))

	buf, format, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if format.SampleRate != 8000 {
		t.Errorf("expected original declared rate 8000, got %d", format.SampleRate)
	}
	// Upsampling 8 samples at 8kHz to 16kHz should roughly double the count.
	if len(buf) < 14 || len(buf) > 18 {
		t.Errorf("expected ~16 resampled samples, got %d", len(buf))
	}
}

func TestDecodeWAV_RejectsNonRIFF(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("not a wav file at all")); err == nil {
		t.Fatal("expected an error for a non-RIFF buffer")
	}
}

func TestDecodeWAV_RejectsTruncatedHeader(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("RIFF")); err == nil {
		t.Fatal("expected an error for a truncated header")
	}
}

func TestDecodeWAV_EmptyDataChunk(t *testing.T) {
	wav := buildWAV(t, formatPCM, 1, TargetSampleRate, 16, nil)
	if _, _, err := DecodeWAV(wav); err == nil {
		t.Fatal("expected EmptyAudio error for a zero-length data chunk")
	}
}

func TestDecodeRawFormatted_MatchesWAVPath(t *testing.T) {
	data := int16LEBytes(100, 200, 300)
	format := Format{AudioFormat: formatPCM, NumChannels: 1, SampleRate: TargetSampleRate, BitsPerSample: 16}

	buf, err := DecodeRawFormatted(data, format)
	if err != nil {
		t.Fatalf("DecodeRawFormatted: %v", err)
	}
	if len(buf) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(buf))
	}
}

func TestDecodeRawPCM16LE(t *testing.T) {
	data := int16LEBytes(0, 32767, -32768)
	buf, err := DecodeRawPCM16LE(data)
	if err != nil {
		t.Fatalf("DecodeRawPCM16LE: %v", err)
	}
	if len(buf) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(buf))
	}
	if buf[1] <= 0.99 || buf[2] >= -0.99 {
		t.Errorf("unexpected extremes: %v", buf)
	}
}

func TestDecodeRawPCM16LE_RejectsOddLength(t *testing.T) {
	if _, err := DecodeRawPCM16LE([]byte{0x00}); err == nil {
		t.Fatal("expected an error for an odd-length buffer")
	}
}

func TestLooksLikeWAV(t *testing.T) {
	wav := buildWAV(t, formatPCM, 1, TargetSampleRate, 16, int16LEBytes(0))
	if !LooksLikeWAV(wav) {
		t.Error("expected LooksLikeWAV to detect a RIFF/WAVE header")
	}
	if LooksLikeWAV(int16LEBytes(1, 2, 3)) {
		t.Error("expected LooksLikeWAV to reject headerless PCM")
	}
}
