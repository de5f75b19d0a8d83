// Package service implements the Transcription Service (SPEC_FULL.md §4.6):
// the one-shot façade composing Audio Decoder → Acoustic Engine → Phonetic
// Dictionary behind a single transcribe operation, used by the RPC
// surface's unary call. The Streaming Session does not go through it; it
// calls the Acoustic Engine and Phonetic Dictionary itself.
package service

import (
	"github.com/Lsh0x/murmure-stt/audio"
	"github.com/Lsh0x/murmure-stt/dictionary"
)

// acousticEngine is the narrow surface Transcribe depends on; a loaded
// *engine.Engine satisfies it. Kept local so tests can inject a stub
// without a real ONNX runtime.
type acousticEngine interface {
	Infer(buf audio.Buffer) (string, error)
}

// Transcription composes the Audio Decoder, Acoustic Engine (which folds in
// the Feature Extractor and Vocabulary stages, §4.2-§4.4), and Phonetic
// Dictionary into the single `transcribe` operation of §4.6.
type Transcription struct {
	engine acousticEngine
	dict   *dictionary.Dictionary
}

// New builds a Transcription Service over a loaded Acoustic Engine and an
// optional Phonetic Dictionary (nil when DICTIONARY is unset).
func New(eng acousticEngine, dict *dictionary.Dictionary) *Transcription {
	return &Transcription{engine: eng, dict: dict}
}

// Transcribe implements `transcribe(audio_bytes, use_dictionary) → text`
// (§4.6): it decodes audioBytes as a WAV buffer, runs the Acoustic Engine,
// and — when useDictionary is set and a dictionary is configured — applies
// Phonetic Dictionary correction. The first error from any stage is
// returned unchanged, preserving its stterrors.Kind classification.
func (t *Transcription) Transcribe(audioBytes []byte, useDictionary bool) (string, error) {
	buf, _, err := audio.DecodeWAV(audioBytes)
	if err != nil {
		return "", err
	}

	text, err := t.engine.Infer(buf)
	if err != nil {
		return "", err
	}

	if useDictionary && t.dict != nil {
		text = t.dict.Correct(text)
	}
	return text, nil
}
