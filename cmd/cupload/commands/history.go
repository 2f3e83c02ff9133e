package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/cupload/internal/app/history"
	"github.com/slok/cupload/internal/model"
	"github.com/slok/cupload/internal/storage/sqlite"
)

// HistoryCommand lists the recorded upload outcomes.
type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	batchID string
	outcome string
	limit   int
	format  string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List the recorded upload outcomes.")
	c.Cmd.Flag("batch", "Only show the outcomes of a batch.").StringVar(&c.batchID)
	c.Cmd.Flag("outcome", "Only show one kind of outcome (success, failure).").EnumVar(&c.outcome, string(model.OutcomeSuccess), string(model.OutcomeFailure))
	c.Cmd.Flag("limit", "Max number of outcomes to show, 0 shows all.").Default("50").IntVar(&c.limit)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	var outcomeFilter *model.Outcome
	if c.outcome != "" {
		o := model.Outcome(c.outcome)
		outcomeFilter = &o
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	svc, err := history.NewService(history.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	ns, err := svc.Run(ctx, history.Request{
		BatchID:       c.batchID,
		OutcomeFilter: outcomeFilter,
		Limit:         c.limit,
	})
	if err != nil {
		return fmt.Errorf("could not list history: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintHistory(ns); err != nil {
		return fmt.Errorf("could not print history: %w", err)
	}

	return nil
}
