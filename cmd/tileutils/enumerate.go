package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/eak1mov/go-tilescheme/jobconfig"
	"github.com/eak1mov/go-tilescheme/jobstore"
	"github.com/eak1mov/go-tilescheme/runner"
	"github.com/eak1mov/go-tilescheme/scheme"
	"github.com/eak1mov/go-tilescheme/tile"
	"github.com/eak1mov/go-tilescheme/tilelist"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type enumerateCmd struct {
	configPath      string
	dbPath          string
	outputPath      string
	checkpointEvery int
	verbose         bool
}

func (c *enumerateCmd) Name() string     { return "enumerate" }
func (c *enumerateCmd) Synopsis() string { return "start a job and write its tiles to a tile list" }
func (c *enumerateCmd) Usage() string {
	return "tileutils enumerate -c <path> -o <path> [-db <path> -n <count>]\n"
}
func (c *enumerateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "c", "", "Job file path")
	f.StringVar(&c.outputPath, "o", "", "Output tile list path")
	f.StringVar(&c.dbPath, "db", "jobs.db", "Job database path")
	f.IntVar(&c.checkpointEvery, "n", 100, "Metatiles between checkpoints")
	f.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

func (c *enumerateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger := newLogger(c.verbose)

	config, err := jobconfig.Load(c.configPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	s, err := scheme.New(config, scheme.WithLogger(logger))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	store, err := jobstore.Open(c.dbPath, jobstore.WithLogger(logger))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	id, err := store.Create(ctx, s.Snapshot())
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	fmt.Println("job:", id)

	writer, err := tilelist.NewWriter(c.outputPath, tilelist.WithLogger(logger))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer writer.Close()

	if err := runJob(ctx, s, store, id, writer, c.checkpointEvery, logger); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}

type resumeCmd struct {
	dbPath          string
	jobID           string
	outputPath      string
	checkpointEvery int
	verbose         bool
}

func (c *resumeCmd) Name() string     { return "resume" }
func (c *resumeCmd) Synopsis() string { return "continue a job from its last checkpoint" }
func (c *resumeCmd) Usage() string {
	return "tileutils resume -job <id> -o <path> [-db <path> -n <count>]\n"
}
func (c *resumeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.jobID, "job", "", "Job id")
	f.StringVar(&c.outputPath, "o", "", "Output tile list path, appended to")
	f.StringVar(&c.dbPath, "db", "jobs.db", "Job database path")
	f.IntVar(&c.checkpointEvery, "n", 100, "Metatiles between checkpoints")
	f.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

func (c *resumeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger := newLogger(c.verbose)

	store, err := jobstore.Open(c.dbPath, jobstore.WithLogger(logger))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	snapshot, err := store.Load(ctx, c.jobID)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if snapshot.Done() {
		log.Printf("job %s is already done", c.jobID)
		return subcommands.ExitSuccess
	}

	s, err := scheme.Restore(snapshot, scheme.WithLogger(logger))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	writer, err := tilelist.NewWriter(c.outputPath, tilelist.WithAppend(), tilelist.WithLogger(logger))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer writer.Close()

	if err := runJob(ctx, s, store, c.jobID, writer, c.checkpointEvery, logger); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}

// runJob writes every remaining tile of s to the tile list and checkpoints the job.
// The tile list is flushed before each checkpoint so that it holds every tile up to the saved cursor.
func runJob(ctx context.Context, s *scheme.Scheme, store *jobstore.Store, id string, writer *tilelist.Writer, checkpointEvery int, logger *slog.Logger) error {
	bar := progressbar.NewOptions64(s.Total(),
		progressbar.OptionSetDescription(id),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	)
	bar.Set64(s.Stats().Processed())

	checkpointer := runner.CheckpointFunc(func(ctx context.Context, snapshot scheme.Snapshot) error {
		if err := writer.Finalize(); err != nil {
			return err
		}
		return store.Save(ctx, id, snapshot)
	})

	visit := func(_ context.Context, metatile tile.Metatile) error {
		for tileID := range metatile.All() {
			if err := writer.WriteTile(tileID); err != nil {
				return err
			}
		}
		bar.Add64(metatile.Count())
		return nil
	}

	r := runner.New(s, runner.WithLogger(logger), runner.WithCheckpointer(checkpointer, checkpointEvery))
	err := r.Run(ctx, visit)
	bar.Finish()
	fmt.Println()

	return errors.Join(err, writer.Finalize())
}

func newLogger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
