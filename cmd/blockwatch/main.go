// Command blockwatch detects and classifies atmospheric pressure/temperature
// features — highs, lows, omega-blocks, and rex-blocks — on a gridded
// meteorological field, per time step, and writes the result to CSV.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/weathercore/blockwatch/config"
	"github.com/weathercore/blockwatch/field"
	"github.com/weathercore/blockwatch/pipeline"
	"github.com/weathercore/blockwatch/sink"
	"github.com/weathercore/blockwatch/xerr"
)

// run wires config, the field adapter, the CSV sink, and the pipeline
// together for a single invocation (spec §6 Command-line surface).
func run(cCtx *cli.Context) error {
	args := cCtx.Args()
	if args.Len() != 7 {
		return fmt.Errorf("expected 7 positional arguments, got %d: %w", args.Len(), xerr.ErrConfig)
	}

	latMin, err := strconv.ParseFloat(args.Get(1), 64)
	if err != nil {
		return fmt.Errorf("lat_min %q is not a number: %w", args.Get(1), xerr.ErrConfig)
	}
	latMax, err := strconv.ParseFloat(args.Get(2), 64)
	if err != nil {
		return fmt.Errorf("lat_max %q is not a number: %w", args.Get(2), xerr.ErrConfig)
	}
	lonMin, err := strconv.ParseFloat(args.Get(3), 64)
	if err != nil {
		return fmt.Errorf("lon_min %q is not a number: %w", args.Get(3), xerr.ErrConfig)
	}
	lonMax, err := strconv.ParseFloat(args.Get(4), 64)
	if err != nil {
		return fmt.Errorf("lon_max %q is not a number: %w", args.Get(4), xerr.ErrConfig)
	}
	nThreads, err := strconv.Atoi(args.Get(6))
	if err != nil {
		return fmt.Errorf("n_threads %q is not an integer: %w", args.Get(6), xerr.ErrConfig)
	}

	cfg, err := config.Build(args.Get(0), latMin, latMax, lonMin, lonMax, args.Get(5), nThreads, time.Now())
	if err != nil {
		return err
	}

	timer := pipeline.NewTimer()

	log.Println("Processing", cfg.InputPath)
	src := field.FileSource{Path: cfg.InputPath}
	raw, err := src.Load()
	if err != nil {
		return err
	}

	f, err := field.New(raw)
	if err != nil {
		return err
	}

	inputBasename := filepath.Base(cfg.InputPath)
	sk, err := sink.New(cfg, f.LongName, inputBasename)
	if err != nil {
		return err
	}
	defer sk.Close()

	initDur := timer.Lap()
	if err := sk.WriteSpeed("init", -1, initDur); err != nil {
		return err
	}
	timer.Reset()

	log.Println("Time steps:", len(f.Times))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := pipeline.Run(ctx, cfg, f, sk, timer); err != nil {
		return err
	}

	if err := sk.WriteSpeed("total", -1, timer.Total()); err != nil {
		return err
	}
	log.Println("Finished", cfg.InputPath)

	return nil
}

func main() {
	app := &cli.App{
		Name:  "blockwatch",
		Usage: "detect and classify atmospheric blocking features on a gridded field",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "process one gridded field file",
				ArgsUsage: "<input-file> <lat_min> <lat_max> <lon_min> <lon_max> <out-dir> <n-threads>",
				Action:    run,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(xerr.ExitCode(err))
}
