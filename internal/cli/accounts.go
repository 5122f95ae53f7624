package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mrlokans/pdflibrary/internal/accounts"
	"github.com/mrlokans/pdflibrary/internal/audit"
	"github.com/mrlokans/pdflibrary/internal/auth"
	"github.com/mrlokans/pdflibrary/internal/bootstrap"
	"github.com/mrlokans/pdflibrary/internal/config"
	dbaudit "github.com/mrlokans/pdflibrary/internal/database/audit"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

// Account commands understood by AccountCommand.
const (
	CommandSeed     = "seed"
	CommandPending  = "pending"
	CommandAccounts = "accounts"
	CommandApprove  = "approve"
	CommandReject   = "reject"
	CommandRevoke   = "revoke"
)

// cliActor is recorded as the actor of decisions made from the command line.
const cliActor = "cli"

var commandHelp = map[string]string{
	CommandSeed:     "Create the seed admin and student accounts if the store is empty",
	CommandPending:  "List subscription requests awaiting approval",
	CommandAccounts: "List verified accounts",
	CommandApprove:  "Approve a pending subscription request",
	CommandReject:   "Reject (delete) a pending subscription request",
	CommandRevoke:   "Revoke a verified non-admin account",
}

// IsAccountCommand reports whether name is handled by AccountCommand.
func IsAccountCommand(name string) bool {
	_, ok := commandHelp[name]
	return ok
}

// AccountCommand runs one operation against the configured credential store.
type AccountCommand struct {
	Name         string
	Username     string
	DatabasePath string
	Verbose      bool

	Out io.Writer
	cfg *config.Config
}

func NewAccountCommand(name string, cfg *config.Config) *AccountCommand {
	return &AccountCommand{Name: name, Out: os.Stdout, cfg: cfg}
}

func (cmd *AccountCommand) needsUsername() bool {
	switch cmd.Name {
	case CommandApprove, CommandReject, CommandRevoke:
		return true
	}
	return false
}

func (cmd *AccountCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the application database")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")
	if cmd.needsUsername() {
		fs.StringVar(&cmd.Username, "username", "", "Username to "+cmd.Name+" (required)")
	}

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s [options]\n\n", os.Args[0], cmd.Name)
		fmt.Fprintf(os.Stderr, "%s.\n\n", commandHelp[cmd.Name])
		fmt.Fprintf(os.Stderr, "The credential store is selected with STORE_BACKEND (local or remote).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.needsUsername() && strings.TrimSpace(cmd.Username) == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	cmd.cfg.Database.Path = cmd.DatabasePath
	return nil
}

// Run opens the configured stores and executes the command.
func (cmd *AccountCommand) Run(ctx context.Context) error {
	log := logger.Nop()
	if cmd.Verbose {
		log = logger.NewLogger("cli", "debug")
	}

	stores, err := bootstrap.OpenStores(ctx, cmd.cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer stores.Close()

	auditor := audit.NewService(dbaudit.NewRepository(stores.DB.DB), log)
	defer auditor.Wait()

	return cmd.Execute(ctx, stores.Accounts, auditor)
}

// Execute runs the command against store. auditor may be nil.
func (cmd *AccountCommand) Execute(ctx context.Context, store accounts.Store, auditor auth.Auditor) error {
	svc := auth.NewService(store, nil, auditor, cmd.cfg.Auth, nil)

	switch cmd.Name {
	case CommandSeed:
		return cmd.seed(ctx, store)
	case CommandPending:
		return cmd.listPending(ctx, svc)
	case CommandAccounts:
		return cmd.listAccounts(ctx, svc)
	case CommandApprove:
		return cmd.decide(ctx, svc.Approve, "Approved", "no pending request")
	case CommandReject:
		return cmd.decide(ctx, svc.Reject, "Rejected", "no pending request")
	case CommandRevoke:
		return cmd.decide(ctx, svc.Revoke, "Revoked", "no revocable account")
	}
	return fmt.Errorf("unknown command %q", cmd.Name)
}

func (cmd *AccountCommand) seed(ctx context.Context, store accounts.Store) error {
	seeds, err := bootstrap.Seeds(cmd.cfg.Seed, cmd.cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	seeded, err := store.InitializeDefaults(ctx, seeds)
	if err != nil {
		return fmt.Errorf("failed to seed accounts: %w", err)
	}
	if !seeded {
		fmt.Fprintln(cmd.Out, "Store already initialized, nothing to do")
		return nil
	}
	for _, s := range seeds {
		fmt.Fprintf(cmd.Out, "Created %s (%s)\n", s.Username, s.Role)
	}
	return nil
}

func (cmd *AccountCommand) listPending(ctx context.Context, svc *auth.Service) error {
	list, err := svc.ListPending(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.Out, "No pending requests")
		return nil
	}

	fmt.Fprintf(cmd.Out, "%d pending request(s)\n\n", len(list))
	for _, p := range list {
		requested := "-"
		if p.RequestedAt != nil {
			requested = p.RequestedAt.Format("2006-01-02 15:04")
		}
		txn := p.TxnRef
		if txn == "" {
			txn = "-"
		}
		fmt.Fprintf(cmd.Out, "%-20s %-24s %-32s txn=%s requested=%s\n", p.Username, p.Name, p.Email, txn, requested)
	}
	return nil
}

func (cmd *AccountCommand) listAccounts(ctx context.Context, svc *auth.Service) error {
	list, err := svc.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.Out, "No accounts")
		return nil
	}

	fmt.Fprintf(cmd.Out, "%d account(s)\n\n", len(list))
	for _, a := range list {
		fmt.Fprintf(cmd.Out, "%-20s %-24s %-8s verified=%t\n", a.Username, a.Name, a.Role, a.Verified)
	}
	return nil
}

func (cmd *AccountCommand) decide(
	ctx context.Context,
	op func(ctx context.Context, actor, username string) (bool, error),
	done, missing string,
) error {
	username := accounts.NormalizeUsername(cmd.Username)
	ok, err := op(ctx, cliActor, username)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s for %q", missing, username)
	}
	fmt.Fprintf(cmd.Out, "%s %s\n", done, username)
	return nil
}

// PrintUsage lists the account commands.
func PrintUsage(w io.Writer) {
	for _, name := range []string{CommandSeed, CommandPending, CommandAccounts, CommandApprove, CommandReject, CommandRevoke} {
		fmt.Fprintf(w, "  %-18s  %s\n", name, commandHelp[name])
	}
}
