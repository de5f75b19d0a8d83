// Package audio implements the Audio Decoder component: parsing a RIFF/WAVE
// byte buffer into a canonical 16 kHz mono float32 PCM AudioBuffer, and
// resampling non-16kHz input. The parsing is hand-rolled with
// encoding/binary, the same idiom the teacher uses for WAV *writing* in
// session/wav_writer.go — this is the mirror-image read path.
package audio

import (
	"encoding/binary"
	"math"

	"github.com/Lsh0x/murmure-stt/internal/stterrors"
)

// TargetSampleRate is the sample rate every AudioBuffer is normalized to.
const TargetSampleRate = 16000

const (
	formatPCM   = 1
	formatFloat = 3
)

// Buffer is a mono, 16 kHz, float32 PCM sample sequence in [-1, 1].
type Buffer []float32

// Format is a WAV fmt chunk's declared encoding, retained by the Streaming
// Session after sniffing the first chunk's RIFF header so that later
// headerless chunks can be decoded "at the header's declared format" (§4.7).
type Format struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// DecodeWAV parses a RIFF/WAVE byte buffer and returns a canonical 16 kHz
// mono AudioBuffer plus the fmt chunk it found. It fails with
// stterrors.UnsupportedFormat for an unrecognized container/codec,
// stterrors.MalformedHeader for a truncated or inconsistent header, and
// stterrors.EmptyAudio when the data chunk yields zero samples.
func DecodeWAV(data []byte) (Buffer, Format, error) {
	if len(data) < 12 {
		return nil, Format{}, stterrors.Newf(stterrors.MalformedHeader, "buffer shorter than RIFF header")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, Format{}, stterrors.Newf(stterrors.UnsupportedFormat, "not a RIFF/WAVE container")
	}

	var (
		format   Format
		haveFmt  bool
		samples  []float32
		haveData bool
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		bodyStart := offset + 8
		bodyEnd := bodyStart + chunkSize
		if chunkSize < 0 || bodyEnd > len(data) {
			return nil, Format{}, stterrors.Newf(stterrors.MalformedHeader, "chunk %q overruns buffer", chunkID)
		}
		body := data[bodyStart:bodyEnd]

		switch chunkID {
		case "fmt ":
			if len(body) < 16 {
				return nil, Format{}, stterrors.Newf(stterrors.MalformedHeader, "fmt chunk too short")
			}
			format = Format{
				AudioFormat:   binary.LittleEndian.Uint16(body[0:2]),
				NumChannels:   binary.LittleEndian.Uint16(body[2:4]),
				SampleRate:    binary.LittleEndian.Uint32(body[4:8]),
				BitsPerSample: binary.LittleEndian.Uint16(body[14:16]),
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, Format{}, stterrors.Newf(stterrors.MalformedHeader, "data chunk before fmt chunk")
			}
			var err error
			samples, err = decodePCM(body, format.AudioFormat, format.NumChannels, format.BitsPerSample)
			if err != nil {
				return nil, Format{}, err
			}
			haveData = true
		}

		// Chunks are word-aligned; odd-sized chunks carry one byte of padding.
		if chunkSize%2 == 1 {
			bodyEnd++
		}
		offset = bodyEnd
	}

	if !haveFmt {
		return nil, Format{}, stterrors.Newf(stterrors.MalformedHeader, "missing fmt chunk")
	}
	if !haveData {
		return nil, Format{}, stterrors.Newf(stterrors.EmptyAudio, "missing data chunk")
	}
	if len(samples) == 0 {
		return nil, Format{}, stterrors.Newf(stterrors.EmptyAudio, "zero samples decoded")
	}

	if format.SampleRate != TargetSampleRate {
		samples = Resample(samples, int(format.SampleRate), TargetSampleRate)
	}

	return Buffer(samples), format, nil
}

// DecodeRawFormatted decodes a headerless PCM buffer using a previously
// sniffed Format, downmixing and resampling to the canonical 16 kHz mono
// representation exactly like DecodeWAV's data-chunk path (§4.7: "subsequent
// chunks are appended as raw PCM at the header's declared format").
func DecodeRawFormatted(data []byte, format Format) (Buffer, error) {
	samples, err := decodePCM(data, format.AudioFormat, format.NumChannels, format.BitsPerSample)
	if err != nil {
		return nil, err
	}
	if format.SampleRate != TargetSampleRate {
		samples = Resample(samples, int(format.SampleRate), TargetSampleRate)
	}
	return Buffer(samples), nil
}

// decodePCM interprets the raw "data" chunk body according to the fmt
// chunk's declared encoding, downmixes to mono by arithmetic mean across
// channels, and scales integer PCM to [-1, 1].
func decodePCM(body []byte, audioFormat, numChannels, bitsPerSample uint16) ([]float32, error) {
	if numChannels == 0 {
		return nil, stterrors.Newf(stterrors.MalformedHeader, "zero channel count")
	}

	bytesPerSample := int(bitsPerSample) / 8
	if bytesPerSample == 0 {
		return nil, stterrors.Newf(stterrors.MalformedHeader, "zero bit depth")
	}
	frameSize := bytesPerSample * int(numChannels)
	if frameSize == 0 || len(body)%frameSize != 0 && len(body) < frameSize {
		return nil, stterrors.Newf(stterrors.MalformedHeader, "data chunk not aligned to frame size")
	}

	numFrames := len(body) / frameSize
	if numFrames == 0 {
		return nil, stterrors.Newf(stterrors.EmptyAudio, "zero frames in data chunk")
	}

	out := make([]float32, numFrames)
	for f := 0; f < numFrames; f++ {
		var sum float64
		for c := 0; c < int(numChannels); c++ {
			start := f*frameSize + c*bytesPerSample
			v, err := readSample(body[start:start+bytesPerSample], audioFormat, bitsPerSample)
			if err != nil {
				return nil, err
			}
			sum += v
		}
		avg := float32(sum / float64(numChannels))
		if math.IsNaN(float64(avg)) || math.IsInf(float64(avg), 0) {
			return nil, stterrors.Newf(stterrors.MalformedHeader, "non-finite sample value")
		}
		out[f] = avg
	}
	return out, nil
}

func readSample(b []byte, audioFormat, bitsPerSample uint16) (float64, error) {
	switch audioFormat {
	case formatPCM:
		switch bitsPerSample {
		case 8:
			// 8-bit PCM is unsigned, centered at 128.
			return (float64(b[0]) - 128) / 128.0, nil
		case 16:
			v := int16(binary.LittleEndian.Uint16(b))
			return float64(v) / 32768.0, nil
		case 24:
			raw := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if raw&0x800000 != 0 {
				raw |= ^int32(0xFFFFFF)
			}
			return float64(raw) / 8388608.0, nil
		case 32:
			v := int32(binary.LittleEndian.Uint32(b))
			return float64(v) / 2147483648.0, nil
		default:
			return 0, stterrors.Newf(stterrors.UnsupportedFormat, "unsupported PCM bit depth %d", bitsPerSample)
		}
	case formatFloat:
		if bitsPerSample != 32 {
			return 0, stterrors.Newf(stterrors.UnsupportedFormat, "unsupported float bit depth %d", bitsPerSample)
		}
		bits := binary.LittleEndian.Uint32(b)
		return float64(math.Float32frombits(bits)), nil
	default:
		return 0, stterrors.Newf(stterrors.UnsupportedFormat, "unsupported wFormatTag %d", audioFormat)
	}
}

// DecodeRawPCM16LE interprets a byte buffer as raw, headerless 16 kHz mono
// 16-bit little-endian PCM, per §4.7's streaming fallback format.
func DecodeRawPCM16LE(data []byte) (Buffer, error) {
	if len(data)%2 != 0 {
		return nil, stterrors.Newf(stterrors.MalformedHeader, "raw PCM16 buffer has an odd byte count")
	}
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		out[i] = float32(v) / 32768.0
	}
	return Buffer(out), nil
}

// LooksLikeWAV reports whether data begins with a RIFF/WAVE header, used by
// the Streaming Session to sniff the format of its first chunk (§4.7).
func LooksLikeWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}
