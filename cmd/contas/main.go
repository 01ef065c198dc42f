// Command contas is the terminal front end for the ledger: it creates
// cards, accounts, installment purchases and recurring obligations, and
// prints previews and per-card statement projections.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"contas/internal/cli"
	"contas/internal/core"
	"contas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("contas")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	store := cli.OpenStore(ctx, logger, cfg)
	amqpClient := cli.InitAMQP(logger, cfg)

	service := services.NewLedgerService(store, amqpClient, cfg.GenerationBatchSize)
	defer service.Close()

	var err error
	switch os.Args[1] {
	case "create-card":
		err = createCard(ctx, store, os.Args[2:])
	case "create-account":
		err = createAccount(ctx, store, os.Args[2:])
	case "list-cards":
		err = listCards(ctx, service)
	case "list-accounts":
		err = listAccounts(ctx, store)
	case "purchase":
		err = purchase(ctx, service, os.Args[2:], false)
	case "preview":
		err = purchase(ctx, service, os.Args[2:], true)
	case "recurring":
		err = recurring(ctx, service, os.Args[2:])
	case "generate":
		err = generate(ctx, service, os.Args[2:])
	case "projections":
		err = projections(ctx, service, os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: contas <command> [flags]

Commands:
  create-card     -name NAME -closing-day DAY [-limit AMOUNT]
  create-account  -name NAME [-balance AMOUNT]
  list-cards
  list-accounts
  purchase        -desc TEXT -amount PER_INSTALLMENT -installments N
                  (-card ID | -account ID) [-date YYYY-MM-DD] [-category TEXT]
  preview         same flags as purchase, prints drafts without saving
  recurring       -desc TEXT -amount AMOUNT -freq monthly|bimonthly|quarterly|semiannual|annual
                  (-card ID | -account ID) [-start YYYY-MM-DD] [-occurrences N] [-category TEXT] [-income]
  generate        -id DEFINITION_ID
  projections     [-from YYYY-MM-DD]
`)
}

type storeAPI interface {
	CreateCard(ctx context.Context, c core.Card) (core.Card, error)
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
}

func createCard(ctx context.Context, store storeAPI, args []string) error {
	fs := flag.NewFlagSet("create-card", flag.ExitOnError)
	name := fs.String("name", "", "card name")
	closingDay := fs.Int("closing-day", 0, "statement closing day (1-31)")
	limit := fs.String("limit", "0", "credit limit")
	fs.Parse(args)

	limitCents, err := parseAmount(*limit, true)
	if err != nil {
		return err
	}

	card, err := store.CreateCard(ctx, core.Card{
		Name:                *name,
		StatementClosingDay: *closingDay,
		Limit:               limitCents,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created card %s (%s, closes on day %d)\n", card.ID, card.Name, card.StatementClosingDay)
	return nil
}

func createAccount(ctx context.Context, store storeAPI, args []string) error {
	fs := flag.NewFlagSet("create-account", flag.ExitOnError)
	name := fs.String("name", "", "account name")
	balance := fs.String("balance", "0", "opening balance")
	fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("account name is required")
	}
	balanceCents, err := parseAmount(*balance, true)
	if err != nil {
		return err
	}

	account, err := store.CreateAccount(ctx, core.Account{
		Name:           *name,
		OpeningBalance: balanceCents,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created account %s (%s)\n", account.ID, account.Name)
	return nil
}

func listCards(ctx context.Context, service *services.LedgerService) error {
	projections, err := service.UpcomingCardProjections(ctx, today())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCLOSING DAY\tLIMIT\tUPCOMING")
	for _, p := range projections {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			p.Card.ID, p.Card.Name, p.Card.StatementClosingDay,
			p.Card.Limit, p.UpcomingTotal)
	}
	return w.Flush()
}

func listAccounts(ctx context.Context, store storeAPI) error {
	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tOPENING BALANCE")
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.Name, a.OpeningBalance)
	}
	return w.Flush()
}

func purchase(ctx context.Context, service *services.LedgerService, args []string, previewOnly bool) error {
	fs := flag.NewFlagSet("purchase", flag.ExitOnError)
	desc := fs.String("desc", "", "purchase description")
	amount := fs.String("amount", "", "amount per installment")
	installments := fs.Int("installments", 1, "number of installments (1-60)")
	cardID := fs.String("card", "", "card id to charge")
	accountID := fs.String("account", "", "account id to debit")
	date := fs.String("date", "", "purchase date, defaults to today")
	category := fs.String("category", "", "category")
	fs.Parse(args)

	target, err := parseTarget(*cardID, *accountID)
	if err != nil {
		return err
	}
	amountCents, err := parseAmount(*amount, false)
	if err != nil {
		return err
	}
	purchaseDate, err := parseDateOrToday(*date)
	if err != nil {
		return err
	}

	plan := core.InstallmentPlan{
		PurchaseDate:         purchaseDate,
		TotalInstallments:    *installments,
		AmountPerInstallment: amountCents,
		Description:          *desc,
		Category:             *category,
		Type:                 core.Expense,
		Target:               target,
	}

	if previewOnly {
		drafts, err := service.PreviewInstallments(ctx, plan)
		if err != nil {
			return err
		}
		printDrafts(drafts)
		return nil
	}

	entries, err := service.CreateInstallmentPurchase(ctx, plan)
	if err != nil {
		return err
	}
	fmt.Printf("created %d installments\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %s  %s  %s\n", e.Date, e.Amount, e.Description)
	}
	return nil
}

func recurring(ctx context.Context, service *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("recurring", flag.ExitOnError)
	desc := fs.String("desc", "", "obligation description")
	amount := fs.String("amount", "", "amount per occurrence")
	freq := fs.String("freq", "monthly", "frequency")
	occurrences := fs.Int("occurrences", 0, "total occurrences, 0 for open-ended")
	cardID := fs.String("card", "", "card id to charge")
	accountID := fs.String("account", "", "account id to debit")
	start := fs.String("start", "", "start date, defaults to today")
	category := fs.String("category", "", "category")
	income := fs.Bool("income", false, "record as income instead of expense")
	fs.Parse(args)

	target, err := parseTarget(*cardID, *accountID)
	if err != nil {
		return err
	}
	amountCents, err := parseAmount(*amount, false)
	if err != nil {
		return err
	}
	startDate, err := parseDateOrToday(*start)
	if err != nil {
		return err
	}

	entryType := core.Expense
	if *income {
		entryType = core.Income
	}

	def := core.RecurringDefinition{
		StartDate:        startDate,
		Frequency:        core.Frequency(*freq),
		TotalOccurrences: *occurrences,
		Description:      *desc,
		Category:         *category,
		Amount:           amountCents,
		Type:             entryType,
		Target:           target,
	}

	entries, err := service.CreateRecurringObligation(ctx, def)
	if err != nil {
		return err
	}
	fmt.Printf("created recurring obligation, materialized %d entries\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %s  %s  %s\n", e.Date, e.Amount, e.Description)
	}
	return nil
}

func generate(ctx context.Context, service *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	id := fs.String("id", "", "recurring definition id")
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("definition id is required")
	}

	entries, err := service.GenerateNextBatch(ctx, *id)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("series exhausted, nothing to generate")
		return nil
	}
	fmt.Printf("generated %d entries\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %s  %s  %s\n", e.Date, e.Amount, e.Description)
	}
	return nil
}

func projections(ctx context.Context, service *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("projections", flag.ExitOnError)
	from := fs.String("from", "", "include entries from this date, defaults to today")
	fs.Parse(args)

	fromDate, err := parseDateOrToday(*from)
	if err != nil {
		return err
	}

	cards, err := service.UpcomingCardProjections(ctx, fromDate)
	if err != nil {
		return err
	}
	for _, p := range cards {
		fmt.Printf("%s (closes day %d): %s upcoming, %.0f%% of limit\n",
			p.Card.Name, p.Card.StatementClosingDay, p.UpcomingTotal, p.LimitUsedPct)
		for _, line := range p.Lines {
			fmt.Printf("  %s  %s  %s\n", line.Date, line.Amount, line.Description)
		}
	}
	return nil
}

func printDrafts(drafts []core.EntryDraft) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DUE DATE\tAMOUNT\tDESCRIPTION")
	for _, d := range drafts {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Date, d.Amount, d.Description)
	}
	w.Flush()
}

func parseTarget(cardID, accountID string) (core.LinkedTarget, error) {
	switch {
	case cardID != "" && accountID != "":
		return core.LinkedTarget{}, fmt.Errorf("specify either -card or -account, not both")
	case cardID != "":
		return core.LinkedTarget{Kind: core.TargetCard, ID: cardID}, nil
	case accountID != "":
		return core.LinkedTarget{Kind: core.TargetAccount, ID: accountID}, nil
	default:
		return core.LinkedTarget{}, fmt.Errorf("a -card or -account target is required")
	}
}

func parseAmount(s string, allowZero bool) (core.Money, error) {
	if s == "" || s == "0" {
		if allowZero {
			return core.Money{}, nil
		}
		return core.Money{}, fmt.Errorf("an amount is required")
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

func parseDateOrToday(s string) (core.Date, error) {
	if s == "" {
		return today(), nil
	}
	return core.ParseDate(s)
}

func today() core.Date {
	now := time.Now()
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}
