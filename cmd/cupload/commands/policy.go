package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/cupload/internal/model"
	storageio "github.com/slok/cupload/internal/storage/io"
)

// PolicyCommand prints the effective validation policy.
type PolicyCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	policyFile string
	format     string
}

// NewPolicyCommand returns the policy command.
func NewPolicyCommand(rootCmd *RootCommand, app *kingpin.Application) *PolicyCommand {
	c := &PolicyCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("policy", "Show the effective file validation policy.")
	c.Cmd.Flag("policy-file", "Validation policy file (YAML or TOML).").StringVar(&c.policyFile)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c PolicyCommand) Name() string { return c.Cmd.FullCommand() }

func (c PolicyCommand) Run(ctx context.Context) error {
	p, err := loadPolicy(ctx, c.policyFile)
	if err != nil {
		return err
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintPolicy(p); err != nil {
		return fmt.Errorf("could not print policy: %w", err)
	}

	return nil
}

// loadPolicy loads the policy file, or returns the default policy when there is none.
func loadPolicy(ctx context.Context, file string) (model.ValidationPolicy, error) {
	if file == "" {
		return model.DefaultValidationPolicy(), nil
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return model.ValidationPolicy{}, fmt.Errorf("invalid policy file path: %w", err)
	}

	repo := storageio.NewPolicyRepository(os.DirFS(filepath.Dir(abs)))
	p, err := repo.GetPolicy(ctx, filepath.Base(abs))
	if err != nil {
		return model.ValidationPolicy{}, fmt.Errorf("could not load policy: %w", err)
	}

	return p, nil
}
