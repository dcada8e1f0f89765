//go:build js && wasm

package main

import (
	"syscall/js"
	"unsafe"

	"github.com/cwbudde/algo-sid/preset"
	"github.com/cwbudde/algo-sid/sid"
)

var (
	synth        *sid.Synth
	slot         *sid.ParamSlot
	outputBuffer []float32
)

func main() {
	// Keep program running
	c := make(chan struct{})

	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmSetVoice", js.FuncOf(wasmSetVoice))
	js.Global().Set("wasmSetGate", js.FuncOf(wasmSetGate))
	js.Global().Set("wasmSetFilter", js.FuncOf(wasmSetFilter))
	js.Global().Set("wasmSetOutput", js.FuncOf(wasmSetOutput))
	js.Global().Set("wasmLoadPreset", js.FuncOf(wasmLoadPreset))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM SID module loaded")
	<-c
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	sampleRate := args[0].Float()

	synth = sid.NewSynth(sampleRate)
	slot = sid.NewParamSlot(sid.DefaultPatch())

	// One render quantum.
	outputBuffer = make([]float32, sid.DefaultBlockSize)

	println("SID initialized at", int(sampleRate), "Hz")
	return nil
}

// wasmSetVoice(frequency, pulseWidth, waveformMask, attack, decay, sustain, release, enabled)
func wasmSetVoice(this js.Value, args []js.Value) interface{} {
	if len(args) < 8 || slot == nil {
		return nil
	}
	slot.Update(func(p *sid.Patch) {
		v := &p.Voice
		v.Frequency = args[0].Float()
		v.PulseWidth = args[1].Float()
		v.Waveforms = sid.Waveforms(args[2].Int()) & sid.WaveAll
		v.Envelope = sid.EnvelopeParams{
			Attack:  args[3].Float(),
			Decay:   args[4].Float(),
			Sustain: args[5].Float(),
			Release: args[6].Float(),
		}
		v.Enabled = args[7].Bool()
	})
	return nil
}

func wasmSetGate(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || slot == nil {
		return nil
	}
	gate := args[0].Bool()
	slot.Update(func(p *sid.Patch) { p.Voice.Gate = gate })
	return nil
}

// wasmSetFilter(mode, cutoff, resonance, gain); mode is a name such as "lowpass".
func wasmSetFilter(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 || slot == nil {
		return nil
	}
	mode, err := sid.ParseFilterMode(args[0].String())
	if err != nil {
		println("wasmSetFilter:", err.Error())
		return nil
	}
	slot.Update(func(p *sid.Patch) {
		p.Filter = sid.FilterParams{
			Mode:      mode,
			Cutoff:    args[1].Float(),
			Resonance: args[2].Float(),
			Gain:      args[3].Float(),
		}
	})
	return nil
}

func wasmSetOutput(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || slot == nil {
		return nil
	}
	slot.Update(func(p *sid.Patch) {
		p.Output = sid.OutputParams{Volume: args[0].Float(), ExternalFilter: args[1].Bool()}
	})
	return nil
}

// wasmLoadPreset replaces the patch with a preset JSON string. The gate is kept.
func wasmLoadPreset(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || slot == nil {
		return false
	}
	p, err := preset.Parse([]byte(args[0].String()))
	if err != nil {
		println("Failed to load preset:", err.Error())
		return false
	}
	slot.Update(func(cur *sid.Patch) {
		p.Voice.Gate = cur.Voice.Gate
		*cur = p
	})
	return true
}

func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || synth == nil {
		return 0
	}

	numFrames := args[0].Int()
	if numFrames > len(outputBuffer) {
		numFrames = len(outputBuffer)
	}
	if numFrames < 1 {
		return 0
	}

	synth.ProcessFrom(slot, outputBuffer[:numFrames])

	// Return pointer to buffer in WASM linear memory
	ptr := &outputBuffer[0]
	return js.ValueOf(uintptr(unsafe.Pointer(ptr)))
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}
