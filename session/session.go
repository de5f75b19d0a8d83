// Package session implements the Streaming Session component (SPEC_FULL.md
// §4.7): a per-connection state machine that accumulates audio chunks,
// periodically emits partial transcripts, and produces one final transcript
// on end-of-stream or an error response on failure.
//
// One goroutine owns the session's buffer exclusively (§5); the transport
// layer drives it through SendChunk/SendEndOfStream/Cancel and drains
// Responses(). Inference itself runs on a separate goroutine per attempt so
// the session loop stays responsive to cancellation and new chunks while a
// pipeline run is in flight, per §5's "session's own goroutine remains
// responsive ... via select over a context.Context and its channels."
package session

import (
	"context"
	"os"

	"github.com/google/uuid"

	"github.com/Lsh0x/murmure-stt/audio"
	"github.com/Lsh0x/murmure-stt/dictionary"
	"github.com/Lsh0x/murmure-stt/internal/logging"
	"github.com/Lsh0x/murmure-stt/internal/stterrors"
)

// acousticEngine is the narrow surface the Streaming Session depends on; a
// loaded *engine.Engine satisfies it. Decoupling from the concrete type
// lets the state machine be exercised in tests without a real ONNX runtime.
type acousticEngine interface {
	Infer(buf audio.Buffer) (string, error)
}

const (
	// PartialWindowSamples is the reference PartialWindow: 2 s of newly
	// accumulated audio since the last partial (§4.7).
	PartialWindowSamples = 2 * audio.TargetSampleRate

	// MaxBufferSamples is the hard buffer cap: 10 minutes of 16 kHz audio
	// (§4.7 "reference: 10 minutes of audio = 9.6 M samples").
	MaxBufferSamples = 10 * 60 * audio.TargetSampleRate
)

// Response is one message emitted on a session's response channel: a
// partial transcript, the single final transcript, or a terminal error
// (always delivered with IsFinal = true, per §4.7 outputs).
type Response struct {
	Text    string
	IsFinal bool
	Err     error
}

type chunkMsg struct {
	data        []byte
	endOfStream bool
}

type inferOutcome struct {
	text  string
	err   error
	final bool
}

// Session is one Streaming Session instance, identified by ID for the
// transport layer's bookkeeping.
type Session struct {
	ID string

	log           logging.Logger
	engine        acousticEngine
	dict          *dictionary.Dictionary
	useDictionary bool

	chunks    chan chunkMsg
	responses chan Response
}

// New creates a Session bound to a loaded Acoustic Engine and an optional
// Phonetic Dictionary. useDictionary mirrors the Transcription Service's
// use_dictionary flag (§4.6) and is applied only to the final transcript,
// per §4.7's final policy.
func New(eng acousticEngine, dict *dictionary.Dictionary, useDictionary bool, log logging.Logger) *Session {
	if log == nil {
		log = logging.New(os.Stderr, logging.LevelInfo)
	}
	return &Session{
		ID:            uuid.NewString(),
		log:           log,
		engine:        eng,
		dict:          dict,
		useDictionary: useDictionary,
		chunks:        make(chan chunkMsg, 8),
		responses:     make(chan Response, 8),
	}
}

// Responses returns the channel of outgoing responses. It is closed when
// the session reaches Closed.
func (s *Session) Responses() <-chan Response { return s.responses }

// SendChunk enqueues one opaque audio_chunk message (§4.7 inputs).
func (s *Session) SendChunk(ctx context.Context, data []byte) error {
	select {
	case s.chunks <- chunkMsg{data: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendEndOfStream enqueues the end_of_stream signal; any chunk sent after
// it is ignored by Run (§4.7).
func (s *Session) SendEndOfStream(ctx context.Context) error {
	select {
	case s.chunks <- chunkMsg{endOfStream: true}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the state machine until end-of-stream, an error, or ctx is
// cancelled. It closes Responses() on return. Cancellation transitions to
// Closed without emitting further messages; an inference already in flight
// is allowed to finish but its result is discarded (§4.7 Cancellation).
func (s *Session) Run(ctx context.Context) {
	defer close(s.responses)

	var (
		buf                 audio.Buffer
		format              audio.Format
		haveFormat          bool
		sniffedFirst        bool
		lastPartial         string
		samplesSincePartial int
		inFlight            bool
		endRequested        bool
	)

	results := make(chan inferOutcome, 1)

	runInference := func(snapshot audio.Buffer, final bool) {
		inFlight = true
		go func() {
			text, err := s.runPipeline(snapshot, final)
			select {
			case results <- inferOutcome{text: text, err: err, final: final}:
			case <-ctx.Done():
			}
		}()
	}

	emit := func(r Response) bool {
		select {
		case s.responses <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-results:
			inFlight = false
			if res.err != nil {
				emit(Response{Err: res.err, IsFinal: true})
				return
			}
			if res.final {
				emit(Response{Text: res.text, IsFinal: true})
				return
			}
			// Debounce: suppress a partial identical to the last one (§4.7).
			if res.text != lastPartial {
				lastPartial = res.text
				if !emit(Response{Text: res.text, IsFinal: false}) {
					return
				}
			}
			if endRequested {
				runInference(snapshot(buf), true)
			}

		case msg, ok := <-s.chunks:
			if !ok {
				return
			}
			if endRequested {
				// "Any audio received after end_of_stream is ignored."
				continue
			}
			if msg.endOfStream {
				endRequested = true
				if !inFlight {
					runInference(snapshot(buf), true)
				}
				continue
			}

			decoded, err := s.decodeChunk(msg.data, &sniffedFirst, &haveFormat, &format)
			if err != nil {
				emit(Response{Err: err, IsFinal: true})
				return
			}
			buf = append(buf, decoded...)
			samplesSincePartial += len(decoded)

			if len(buf) > MaxBufferSamples {
				emit(Response{
					Err:     stterrors.Newf(stterrors.BufferOverflow, "buffer exceeds %d samples", MaxBufferSamples),
					IsFinal: true,
				})
				return
			}

			if samplesSincePartial >= PartialWindowSamples && !inFlight {
				samplesSincePartial = 0
				runInference(snapshot(buf), false)
			}
		}
	}
}

// decodeChunk sniffs the RIFF header on the session's first chunk and
// remembers its declared format for every later headerless chunk, per
// §4.7's input contract.
func (s *Session) decodeChunk(data []byte, sniffedFirst, haveFormat *bool, format *audio.Format) (audio.Buffer, error) {
	if !*sniffedFirst {
		*sniffedFirst = true
		if audio.LooksLikeWAV(data) {
			decoded, f, err := audio.DecodeWAV(data)
			if err != nil {
				return nil, err
			}
			*format = f
			*haveFormat = true
			return decoded, nil
		}
		return audio.DecodeRawPCM16LE(data)
	}

	if *haveFormat {
		return audio.DecodeRawFormatted(data, *format)
	}
	return audio.DecodeRawPCM16LE(data)
}

// runPipeline runs the Acoustic Engine over buf and, for the final pass
// only, applies Phonetic Dictionary correction when configured (§4.7 final
// policy; partials trade dictionary correction for lower latency).
func (s *Session) runPipeline(buf audio.Buffer, final bool) (string, error) {
	text, err := s.engine.Infer(buf)
	if err != nil {
		return "", err
	}
	if final && s.useDictionary && s.dict != nil {
		text = s.dict.Correct(text)
	}
	return text, nil
}

// snapshot copies buf so the inference goroutine observes a stable buffer
// even as the session goroutine keeps appending to the original slice.
func snapshot(buf audio.Buffer) audio.Buffer {
	cp := make(audio.Buffer, len(buf))
	copy(cp, buf)
	return cp
}
