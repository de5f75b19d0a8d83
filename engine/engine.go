// Package engine implements the Acoustic Engine (SPEC_FULL.md §4.3): loading
// the four-network TDT model (preprocessor, encoder, decoder, joint) and
// running greedy token-and-duration transducer decoding over an AudioBuffer.
//
// Grounded on ai/gigaam_rnnt.go's session-construction style (persistent
// DynamicAdvancedSession per network, CoreML-or-CPU provider selection) and
// on the parakeet TDT reference (other_examples/) for the duration-aware
// decode loop itself, implemented separately in decode.go.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Lsh0x/murmure-stt/internal/logging"
	"github.com/Lsh0x/murmure-stt/internal/stterrors"
)

// Conventional model file names located inside MODEL_PATH (§4.3 "load").
const (
	preprocessorFile = "preprocessor.onnx"
	encoderFile      = "encoder.onnx"
	decoderFile      = "decoder.onnx"
	jointFile        = "joint.onnx"
	vocabFile        = "vocab.txt"
)

// BLANK is the reserved no-emit token index (§3, §4.3); the vocabulary's
// blankID is always this value.
const BLANK = 0

var initRuntimeOnce sync.Once
var initRuntimeErr error

func ensureRuntimeInitialized() error {
	initRuntimeOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if lib := os.Getenv("ONNXRUNTIME_LIB"); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		initRuntimeErr = ort.InitializeEnvironment()
	})
	return initRuntimeErr
}

// sessionSet is one complete loaded copy of the four networks. The Engine
// keeps a small pool of these so concurrent inference calls can proceed
// without serializing on a single mutex, per SPEC_FULL.md §4.3's resolved
// open question and §5's session-pool guidance.
type sessionSet struct {
	preprocessor *ort.DynamicAdvancedSession
	encoder      *ort.DynamicAdvancedSession
	decoder      *ort.DynamicAdvancedSession
	joint        *ort.DynamicAdvancedSession
}

func (s *sessionSet) destroy() {
	if s.preprocessor != nil {
		s.preprocessor.Destroy()
	}
	if s.encoder != nil {
		s.encoder.Destroy()
	}
	if s.decoder != nil {
		s.decoder.Destroy()
	}
	if s.joint != nil {
		s.joint.Destroy()
	}
}

// Engine owns the loaded Acoustic Engine model handles for their lifetime
// (§3 Ownership). It is immutable after Load and safe for concurrent use
// from multiple Streaming Sessions (§5).
type Engine struct {
	log logging.Logger

	vocab *vocabulary

	nMels        int
	numDurations int
	decoderState int // width of the decoder's recurrent state tensor

	pool chan *sessionSet
}

// Load locates the four conventional model files plus the vocabulary file
// inside modelDir, builds a small pool of loaded session sets, and
// introspects the preprocessor/joint output shapes to discover n_mels and
// the duration-bucket count at load time rather than hardcoding them
// (SPEC_FULL.md §9 resolved open question).
func Load(modelDir string, log logging.Logger) (*Engine, error) {
	if log == nil {
		log = logging.New(os.Stderr, logging.LevelInfo)
	}

	paths := map[string]string{
		preprocessorFile: filepath.Join(modelDir, preprocessorFile),
		encoderFile:      filepath.Join(modelDir, encoderFile),
		decoderFile:      filepath.Join(modelDir, decoderFile),
		jointFile:        filepath.Join(modelDir, jointFile),
		vocabFile:        filepath.Join(modelDir, vocabFile),
	}
	for name, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return nil, stterrors.New(stterrors.ModelNotFound, fmt.Errorf("%s: %w", name, err))
		}
	}

	vocab, err := loadVocabulary(paths[vocabFile])
	if err != nil {
		return nil, stterrors.New(stterrors.ModelLoadError, fmt.Errorf("loading vocabulary: %w", err))
	}

	if err := ensureRuntimeInitialized(); err != nil {
		return nil, stterrors.New(stterrors.ModelLoadError, fmt.Errorf("initializing ONNX runtime: %w", err))
	}

	poolSize := runtime.GOMAXPROCS(0)
	if poolSize < 1 {
		poolSize = 1
	}

	e := &Engine{
		log:   log,
		vocab: vocab,
		pool:  make(chan *sessionSet, poolSize),
	}

	for i := 0; i < poolSize; i++ {
		set, err := newSessionSet(paths)
		if err != nil {
			// Release any sets already built before failing.
			close(e.pool)
			for s := range e.pool {
				s.destroy()
			}
			return nil, stterrors.New(stterrors.ModelLoadError, err)
		}
		if i == 0 {
			e.nMels, e.numDurations, e.decoderState = introspectShapes(paths, vocab.size())
		}
		e.pool <- set
	}

	log.Infof("acoustic engine loaded: vocab=%d tokens, n_mels=%d, num_durations=%d, pool=%d",
		vocab.size(), e.nMels, e.numDurations, poolSize)
	return e, nil
}

func newSessionSet(paths map[string]string) (*sessionSet, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer options.Destroy()

	// CoreML is offered as an example execution provider the way the
	// teacher's gigaam_rnnt.go does; CPU-only is the reference per
	// SPEC_FULL.md §1, so a failure to enable it is not fatal.
	if err := options.AppendExecutionProviderCoreML(0); err != nil {
		// Best effort: fall back to CPU silently, matching the teacher's
		// "CoreML not available, using CPU" behavior.
		_ = err
	}

	set := &sessionSet{}
	load := func(path string, dst **ort.DynamicAdvancedSession) error {
		inInfo, outInfo, err := ort.GetInputOutputInfo(path)
		if err != nil {
			return fmt.Errorf("reading %s shapes: %w", filepath.Base(path), err)
		}
		sess, err := ort.NewDynamicAdvancedSession(path, namesOf(inInfo), namesOf(outInfo), options)
		if err != nil {
			return fmt.Errorf("loading %s: %w", filepath.Base(path), err)
		}
		*dst = sess
		return nil
	}

	if err := load(paths[preprocessorFile], &set.preprocessor); err != nil {
		set.destroy()
		return nil, err
	}
	if err := load(paths[encoderFile], &set.encoder); err != nil {
		set.destroy()
		return nil, err
	}
	if err := load(paths[decoderFile], &set.decoder); err != nil {
		set.destroy()
		return nil, err
	}
	if err := load(paths[jointFile], &set.joint); err != nil {
		set.destroy()
		return nil, err
	}
	return set, nil
}

func namesOf(info []ort.InputOutputInfo) []string {
	names := make([]string, len(info))
	for i, inf := range info {
		names[i] = inf.Name
	}
	return names
}

// introspectShapes reads the preprocessor's declared mel-channel count and
// the joint network's duration-bucket count (output width minus vocab
// size) directly from the models' declared static shapes, rather than
// hardcoding them, per §9's resolved open question. A model-declared
// dimension of -1 (dynamic) falls back to the reference value.
func introspectShapes(paths map[string]string, vocabSize int) (nMels, numDurations, decoderState int) {
	nMels, numDurations, decoderState = 128, 5, 640 // reference fallbacks (§3, §4.3)

	if _, outInfo, err := ort.GetInputOutputInfo(paths[preprocessorFile]); err == nil {
		for _, o := range outInfo {
			if dims := o.Dimensions; len(dims) >= 2 && dims[1] > 0 {
				nMels = int(dims[1])
				break
			}
		}
	}

	if _, outInfo, err := ort.GetInputOutputInfo(paths[jointFile]); err == nil {
		for _, o := range outInfo {
			dims := o.Dimensions
			if len(dims) == 0 {
				continue
			}
			width := int(dims[len(dims)-1])
			if width > vocabSize {
				numDurations = width - vocabSize
				break
			}
		}
	}

	if _, outInfo, err := ort.GetInputOutputInfo(paths[decoderFile]); err == nil {
		for _, o := range outInfo {
			if dims := o.Dimensions; len(dims) >= 3 && dims[2] > 0 {
				decoderState = int(dims[2])
				break
			}
		}
	}

	return
}

// Unload releases all pooled model handles (§4.3 "unload").
func (e *Engine) Unload() {
	close(e.pool)
	for s := range e.pool {
		s.destroy()
	}
}

// checkout blocks until a session set is available from the pool.
func (e *Engine) checkout() *sessionSet { return <-e.pool }

func (e *Engine) checkin(s *sessionSet) { e.pool <- s }
