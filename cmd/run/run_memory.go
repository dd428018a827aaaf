package run

import (
	"context"
	"flag"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/ratehist/cmd/env"
	"github.com/sig-0/ratehist/storage/memory"
)

type runMemoryCfg struct {
	rootCfg *runCfg
}

// newRunMemoryCmd creates the run memory command.
// The in-memory datastore lives for a single invocation, which still
// covers a populate + visualize run in one go
func newRunMemoryCmd(rootCfg *runCfg) *ffcli.Command {
	cfg := &runMemoryCfg{
		rootCfg: rootCfg,
	}

	fs := flag.NewFlagSet("memory", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "memory",
		ShortUsage: "run memory [flags]",
		LongHelp:   "Runs the rate pipeline stages, using an in-memory datastore",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *runMemoryCfg) exec(ctx context.Context, _ []string) error {
	return c.rootCfg.exec(ctx, memory.NewStorage())
}
