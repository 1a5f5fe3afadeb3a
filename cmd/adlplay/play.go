package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/icco/adlplay/internal/audio"
	"github.com/icco/adlplay/internal/banks"
	"github.com/icco/adlplay/internal/config"
	"github.com/icco/adlplay/internal/display"
	"github.com/icco/adlplay/internal/mixer"
	"github.com/icco/adlplay/internal/opl3"
	"github.com/icco/adlplay/internal/player"
	"github.com/icco/adlplay/internal/reverb"
	"github.com/icco/adlplay/internal/smf"
)

// tickGranularity is the fewest MIDI ticks the scheduler advances per render
// iteration; otherwise each iteration advances as many ticks as one render
// block lasts at the current tempo.
const tickGranularity = 1

// framesPerRenderBlock bounds how much audio the render loop generates
// before pushing to the sink, keeping output latency low.
const framesPerRenderBlock = 512

func runListBanks() error {
	table := banks.Default()
	for i, name := range table.Names {
		fourOp, mapped := table.FourOpCount(i)
		fmt.Printf("%3d  %-20s  %3d instruments mapped, %d need four operators\n", i, name, mapped, fourOp)
	}
	return nil
}

func runPlay(args []string, bankIndex, numCards, numFourOps int) error {
	midiPath := args[0]
	if len(args) > 1 {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid bank argument %q: %w", args[1], err)
		}
		bankIndex = v
	}
	if len(args) > 2 {
		v, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid numcards argument %q: %w", args[2], err)
		}
		numCards = v
	}
	if len(args) > 3 {
		v, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid numfourops argument %q: %w", args[3], err)
		}
		numFourOps = v
	}

	table := banks.Default()

	raw, err := os.ReadFile(midiPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", midiPath, err)
	}
	file, err := smf.Load(midiPath, raw)
	if err != nil {
		return fmt.Errorf("loading %s: %w", midiPath, err)
	}

	cfg, err := config.New(midiPath, bankIndex, numCards, numFourOps, table)
	if err != nil {
		return err
	}

	disp := display.NewANSI(os.Stdout)
	disp.Title(fmt.Sprintf("adlplay: %s (bank %d, %d card(s), %d four-op channels)",
		midiPath, cfg.BankIndex, cfg.NumCards, cfg.NumFourOps))

	chips := make([]opl3.Chip, cfg.NumCards)
	mixerChips := make([]mixer.Chip, cfg.NumCards)
	for i := range chips {
		sc := &opl3.SoftChip{}
		chips[i] = sc
		mixerChips[i] = sc
	}

	p, err := player.NewPlayer(player.Config{
		BankIndex:  cfg.BankIndex,
		NumCards:   cfg.NumCards,
		NumFourOps: cfg.NumFourOps,
		SampleRate: cfg.SampleRate,
	}, file, chips, table, disp)
	if err != nil {
		return fmt.Errorf("initializing player: %w", err)
	}

	sink, err := audio.NewOtoSink(cfg.SampleRate, 200)
	if err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}
	defer sink.Close()

	rv := reverb.NewSchroeder(0.2)
	mx := mixer.NewMixer(mixerChips, rv)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		<-stop
		close(done)
	}()

	frame := make([]int16, framesPerRenderBlock*2)
	ticksPerBlock := int64(framesPerRenderBlock) // refined below per tempo

	for {
		select {
		case <-done:
			return nil
		default:
		}

		secondsPerBlock := float64(framesPerRenderBlock) / float64(cfg.SampleRate)
		usPerTick := float64(p.SchedulerPosition().MicrosecondsPerQuarterNote) / float64(file.Division)
		if usPerTick > 0 {
			ticksPerBlock = int64(secondsPerBlock * 1e6 / usPerTick)
			if ticksPerBlock < tickGranularity {
				ticksPerBlock = tickGranularity
			}
		}

		alive := p.Tick(ticksPerBlock)
		mx.Render(frame, framesPerRenderBlock)
		sink.PushFrames(frame)

		if !alive {
			time.Sleep(200 * time.Millisecond) // let the tail ring out
			return nil
		}
	}
}
