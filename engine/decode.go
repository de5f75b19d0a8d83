package engine

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Lsh0x/murmure-stt/audio"
	"github.com/Lsh0x/murmure-stt/internal/stterrors"
)

// hopMillis/windowMillis are the Feature Extractor's fixed-stride
// constants (§4.2 reference values).
const (
	windowMillis = 25
	hopMillis    = 10
	maxDuration  = 4 // reference duration bucket set {0,1,2,3,4} (§4.3)
)

// Infer runs the full Acoustic Engine pipeline — preprocessor, encoder,
// then greedy TDT decode — over buf and returns the detokenized text.
// Very short audio (T < 1 frame) yields an empty transcript without
// invoking the engine, per §4.2.
func (e *Engine) Infer(buf audio.Buffer) (string, error) {
	n := len(buf)
	window := windowMillis * audio.TargetSampleRate / 1000
	hop := hopMillis * audio.TargetSampleRate / 1000
	framesEstimate := (n-window+hop)/hop
	if framesEstimate < 1 {
		return "", nil
	}

	set := e.checkout()
	defer e.checkin(set)

	melData, melLen, err := e.runPreprocessor(set, buf)
	if err != nil {
		return "", stterrors.New(stterrors.InferenceError, err)
	}
	if melLen < 1 {
		return "", nil
	}

	encOut, encDim, encLen, err := e.runEncoder(set, melData, melLen)
	if err != nil {
		return "", stterrors.New(stterrors.InferenceError, err)
	}

	tokens, err := e.greedyTDT(set, encOut, encDim, encLen)
	if err != nil {
		return "", stterrors.New(stterrors.InferenceError, err)
	}

	return e.vocab.detokenize(tokens), nil
}

func (e *Engine) runPreprocessor(set *sessionSet, buf audio.Buffer) ([]float32, int, error) {
	samples := []float32(buf)
	sampleShape := ort.NewShape(1, int64(len(samples)))
	sampleTensor, err := ort.NewTensor(sampleShape, samples)
	if err != nil {
		return nil, 0, fmt.Errorf("creating preprocessor input tensor: %w", err)
	}
	defer sampleTensor.Destroy()

	lengthTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(len(samples))})
	if err != nil {
		return nil, 0, fmt.Errorf("creating preprocessor length tensor: %w", err)
	}
	defer lengthTensor.Destroy()

	outputs := []ort.Value{nil, nil}
	if err := set.preprocessor.Run([]ort.Value{sampleTensor, lengthTensor}, outputs); err != nil {
		return nil, 0, fmt.Errorf("running preprocessor: %w", err)
	}
	defer destroyAll(outputs)

	melTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, 0, fmt.Errorf("preprocessor output has unexpected tensor type")
	}
	melLen := int(melTensor.GetShape()[len(melTensor.GetShape())-1])

	melData := make([]float32, len(melTensor.GetData()))
	copy(melData, melTensor.GetData())
	return melData, melLen, nil
}

func (e *Engine) runEncoder(set *sessionSet, melData []float32, melLen int) ([]float32, int, int, error) {
	nMels := e.nMels
	melShape := ort.NewShape(1, int64(nMels), int64(melLen))
	melTensor, err := ort.NewTensor(melShape, melData)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("creating encoder input tensor: %w", err)
	}
	defer melTensor.Destroy()

	lengthTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(melLen)})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("creating encoder length tensor: %w", err)
	}
	defer lengthTensor.Destroy()

	outputs := []ort.Value{nil, nil}
	if err := set.encoder.Run([]ort.Value{melTensor, lengthTensor}, outputs); err != nil {
		return nil, 0, 0, fmt.Errorf("running encoder: %w", err)
	}
	defer destroyAll(outputs)

	encTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, 0, 0, fmt.Errorf("encoder output has unexpected tensor type")
	}
	shape := encTensor.GetShape()
	encDim := int(shape[1])
	encLen := int(shape[2])

	if lenTensor, ok := outputs[1].(*ort.Tensor[int64]); ok {
		if actual := int(lenTensor.GetData()[0]); actual > 0 && actual <= encLen {
			encLen = actual
		}
	}

	encData := make([]float32, len(encTensor.GetData()))
	copy(encData, encTensor.GetData())
	return encData, encDim, encLen, nil
}

// decodeStep applies §4.3 step (e)'s per-frame decode policy to one
// argmax(token)/argmax(duration) pair: shouldEmit reports whether token is
// a non-blank emission, and advance is how far to move the encoder time
// index t. Only a blank with a zero predicted duration is forced to
// advance by 1 to guarantee progress; a non-blank token predicting
// duration 0 does not advance, which is how the TDT mechanism emits
// multiple sub-word tokens from a single encoder frame (§8, §9).
func decodeStep(token, duration, blank int) (shouldEmit bool, advance int) {
	shouldEmit = token != blank
	advance = duration
	if token == blank && advance < 1 {
		advance = 1
	}
	return shouldEmit, advance
}

// greedyTDT implements the decode loop of §4.3 literally: at each encoder
// time index t, run decoder+joint, take the argmax token and argmax
// duration, commit the decoder state only on a non-blank emission, and
// advance t per decodeStep.
func (e *Engine) greedyTDT(set *sessionSet, encOut []float32, encDim, encLen int) ([]int, error) {
	blank := e.vocab.blankID
	vocabSize := e.vocab.size()
	stateDim := e.decoderState

	state := make([]float32, stateDim)
	lastToken := int64(blank)
	t := 0

	var emitted []int
	safetyCap := 10 * encLen
	if safetyCap < 1 {
		safetyCap = 1
	}

	for t < encLen && len(emitted) < safetyCap {
		decOut, newState, err := e.runDecoder(set, lastToken, state)
		if err != nil {
			return nil, err
		}

		frame := make([]float32, encDim)
		for d := 0; d < encDim; d++ {
			frame[d] = encOut[d*encLen+t]
		}

		logits, err := e.runJoint(set, frame, decOut)
		if err != nil {
			return nil, err
		}
		if len(logits) < vocabSize+1 {
			return nil, fmt.Errorf("joint output width %d smaller than vocab_size+1 (%d)", len(logits), vocabSize+1)
		}

		tokenLogits := logits[:vocabSize]
		durationLogits := logits[vocabSize:]

		token := argmax(tokenLogits)
		duration := argmax(durationLogits)

		shouldEmit, advance := decodeStep(token, duration, blank)
		if shouldEmit {
			emitted = append(emitted, token)
			lastToken = int64(token)
			state = newState
		}
		t += advance
	}

	return emitted, nil
}

func (e *Engine) runDecoder(set *sessionSet, lastToken int64, state []float32) ([]float32, []float32, error) {
	tokenTensor, err := ort.NewTensor(ort.NewShape(1, 1), []int64{lastToken})
	if err != nil {
		return nil, nil, fmt.Errorf("creating decoder token tensor: %w", err)
	}
	defer tokenTensor.Destroy()

	stateTensor, err := ort.NewTensor(ort.NewShape(1, 1, int64(len(state))), state)
	if err != nil {
		return nil, nil, fmt.Errorf("creating decoder state tensor: %w", err)
	}
	defer stateTensor.Destroy()

	outputs := []ort.Value{nil, nil}
	if err := set.decoder.Run([]ort.Value{tokenTensor, stateTensor}, outputs); err != nil {
		return nil, nil, fmt.Errorf("running decoder: %w", err)
	}
	defer destroyAll(outputs)

	decOutTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("decoder output has unexpected tensor type")
	}
	newStateTensor, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("decoder state output has unexpected tensor type")
	}

	decOut := make([]float32, len(decOutTensor.GetData()))
	copy(decOut, decOutTensor.GetData())
	newState := make([]float32, len(newStateTensor.GetData()))
	copy(newState, newStateTensor.GetData())
	return decOut, newState, nil
}

func (e *Engine) runJoint(set *sessionSet, encFrame, decOut []float32) ([]float32, error) {
	encTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(encFrame)), 1), encFrame)
	if err != nil {
		return nil, fmt.Errorf("creating joint encoder-frame tensor: %w", err)
	}
	defer encTensor.Destroy()

	decTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(decOut)), 1), decOut)
	if err != nil {
		return nil, fmt.Errorf("creating joint decoder-output tensor: %w", err)
	}
	defer decTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := set.joint.Run([]ort.Value{encTensor, decTensor}, outputs); err != nil {
		return nil, fmt.Errorf("running joint: %w", err)
	}
	defer destroyAll(outputs)

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("joint output has unexpected tensor type")
	}
	logits := make([]float32, len(logitsTensor.GetData()))
	copy(logits, logitsTensor.GetData())
	return logits, nil
}

func destroyAll(values []ort.Value) {
	for _, v := range values {
		if v != nil {
			v.Destroy()
		}
	}
}

// argmax returns the leftmost index of the maximum value (§4.3 tie-break
// rule: "argmax is leftmost (lowest index) on ties").
func argmax(data []float32) int {
	best := 0
	for i := 1; i < len(data); i++ {
		if data[i] > data[best] {
			best = i
		}
	}
	return best
}
