package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ebitengine/oto/v3"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-sid/preset"
	"github.com/cwbudde/algo-sid/sid"
)

func main() {
	presetPath := flag.String("preset", "", "Patch JSON file (optional)")
	watch := flag.Bool("watch", false, "Reload the patch file whenever it changes")
	freq := flag.Float64("freq", 0, "Oscillator frequency override in Hz (0 = from patch)")
	sampleRate := flag.Int("sample-rate", 48000, "Device sample rate in Hz")
	blockSize := flag.Int("block", sid.DefaultBlockSize, "Render block size in frames")
	bufferMs := flag.Int("buffer-ms", 40, "Device buffer length in milliseconds")
	gateRate := flag.Float64("gate-rate", 1, "Gate toggles per second (0 = hold the gate open)")
	gateDuty := flag.Float64("gate-duty", 0.5, "Fraction of each gate cycle the gate is open")
	duration := flag.Duration("duration", 0, "Stop after this long (0 = until interrupted)")
	flag.Parse()

	if *watch && *presetPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -watch requires -preset\n")
		os.Exit(1)
	}

	patch := sid.DefaultPatch()
	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
		patch = p
	}
	if *freq > 0 {
		patch.Voice.Frequency = *freq
	}
	patch.Voice.Enabled = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	if err := run(ctx, patch, *presetPath, *watch, *freq, *sampleRate, *blockSize, *bufferMs, *gateRate, *gateDuty); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, patch sid.Patch, presetPath string, watch bool, freq float64, sampleRate, blockSize, bufferMs int, gateRate, gateDuty float64) error {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(bufferMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	slot := sid.NewParamSlot(patch)
	synth := sid.NewSynth(float64(sampleRate))
	player := otoCtx.NewPlayer(newSynthStream(synth, slot, blockSize))
	defer player.Close()
	player.Play()

	fmt.Printf("Playing %.2f Hz %s at %d Hz (filter: %s). Ctrl-C to stop.\n",
		patch.Voice.Frequency, patch.Voice.Waveforms, sampleRate, patch.Filter.Mode)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runGate(ctx, slot, gateRate, gateDuty)
	})
	if watch {
		g.Go(func() error {
			return preset.Watch(ctx, presetPath, func(p sid.Patch) {
				slot.Update(func(cur *sid.Patch) {
					gate := cur.Voice.Gate
					*cur = p
					cur.Voice.Gate = gate
					cur.Voice.Enabled = true
					if freq > 0 {
						cur.Voice.Frequency = freq
					}
				})
				fmt.Printf("Reloaded %s\n", presetPath)
			}, func(err error) {
				fmt.Fprintf(os.Stderr, "Reload failed: %v\n", err)
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runGate toggles the gate in the slot until ctx is done. A non-positive rate
// holds the gate open.
func runGate(ctx context.Context, slot *sid.ParamSlot, rate, duty float64) error {
	setGate := func(on bool) {
		slot.Update(func(p *sid.Patch) { p.Voice.Gate = on })
	}
	defer setGate(false)

	setGate(true)
	if rate <= 0 {
		<-ctx.Done()
		return nil
	}

	duty = min(max(duty, 0.01), 0.99)
	period := time.Duration(float64(time.Second) / rate)
	on := time.Duration(float64(period) * duty)
	gateOpen := true
	timer := time.NewTimer(on)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			gateOpen = !gateOpen
			setGate(gateOpen)
			if gateOpen {
				timer.Reset(on)
			} else {
				timer.Reset(period - on)
			}
		}
	}
}
