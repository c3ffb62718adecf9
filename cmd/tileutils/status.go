package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/eak1mov/go-tilescheme/jobstore"
	"github.com/google/subcommands"
)

type statusCmd struct {
	dbPath string
}

func (c *statusCmd) Name() string     { return "status" }
func (c *statusCmd) Synopsis() string { return "list jobs and their progress" }
func (c *statusCmd) Usage() string {
	return "tileutils status [-db <path>]\n"
}
func (c *statusCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dbPath, "db", "jobs.db", "Job database path")
}

func (c *statusCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	store, err := jobstore.Open(c.dbPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	jobs, err := store.List(ctx)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "job\tupdated\tprocessed\ttotal\tdone")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%v\n", job.ID, job.UpdatedAt.Format(time.DateTime), job.Processed, job.Total, job.Done)
	}
	w.Flush()

	return subcommands.ExitSuccess
}
