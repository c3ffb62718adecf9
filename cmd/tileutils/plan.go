package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/eak1mov/go-tilescheme/jobconfig"
	"github.com/eak1mov/go-tilescheme/scheme"
	"github.com/google/subcommands"
)

type planCmd struct {
	configPath string
	verbose    bool
}

func (c *planCmd) Name() string     { return "plan" }
func (c *planCmd) Synopsis() string { return "print tile bounds and counts of a job" }
func (c *planCmd) Usage() string {
	return "tileutils plan -c <path>\n"
}
func (c *planCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "c", "", "Job file path")
	f.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

func (c *planCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	config, err := jobconfig.Load(c.configPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	s, err := scheme.New(config, scheme.WithLogger(newLogger(c.verbose)))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	printPlan(s)
	return subcommands.ExitSuccess
}

func printPlan(s *scheme.Scheme) {
	fmt.Printf("srid: %v, metatile: %d, concurrency: %d\n", s.Grid().SRID, s.MetatileSize(), s.Concurrency())

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "zoom\tminX\tminY\tmaxX\tmaxY\ttiles\t")
	for z := s.MinZoom(); z <= s.MaxZoom(); z++ {
		b, _ := s.Bounds(z)
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t\n", z, b.MinX, b.MinY, b.MaxX, b.MaxY, b.Count())
	}
	fmt.Fprintf(w, "total\t\t\t\t\t%d\t\n", s.Total())
	w.Flush()
}
