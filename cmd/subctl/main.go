// Command subctl manages offer subscriptions in the Postgres store.
//
//	subctl list
//	subctl create -url <search-url> -target <notification-target>
//	subctl delete -id <subscription-id>
//	subctl offers -id <subscription-id>
//	subctl seed -file subscriptions.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/dealmungchi/offerwatcher/config"
	"github.com/dealmungchi/offerwatcher/internal/offer"
	"github.com/dealmungchi/offerwatcher/logger"
	"github.com/dealmungchi/offerwatcher/services/notifier"
	"github.com/dealmungchi/offerwatcher/services/store"
)

// commandStore is what the commands need from a store
type commandStore interface {
	store.SubscriptionStore
	ListOffers(ctx context.Context, subscriptionID int64) ([]offer.Offer, error)
}

func main() {
	godotenv.Load()
	cfg := config.LoadConfig()
	logger.Init(cfg.IsProduction())

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Default.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		logger.Default.Fatal().Err(err).Msg("Failed to apply schema")
	}

	if err := run(ctx, store.NewPostgresStore(db), os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "subctl:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: subctl <list|create|delete|offers|seed> [flags]")
}

func run(ctx context.Context, s commandStore, command string, args []string, out io.Writer) error {
	switch command {
	case "list":
		subs, err := s.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTARGET\tLAST SYNC\tURL")
		for _, sub := range subs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", sub.ID, sub.NotificationTarget, sub.LastSync.Format(time.DateTime), sub.URL)
		}
		return tw.Flush()

	case "create":
		fs := flag.NewFlagSet("create", flag.ContinueOnError)
		url := fs.String("url", "", "search results URL to monitor")
		target := fs.String("target", "log:", "notification target (redis:<stream>, amqp:<key>, https://..., log:)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *url == "" {
			return fmt.Errorf("create: -url is required")
		}
		if _, _, err := notifier.ParseTarget(*target); err != nil {
			return err
		}
		sub, err := s.Create(ctx, *url, *target)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created subscription %d\n", sub.ID)
		return nil

	case "delete":
		fs := flag.NewFlagSet("delete", flag.ContinueOnError)
		id := fs.Int64("id", 0, "subscription id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := s.Delete(ctx, *id); err != nil {
			return fmt.Errorf("delete subscription %d: %w", *id, err)
		}
		fmt.Fprintf(out, "deleted subscription %d\n", *id)
		return nil

	case "offers":
		fs := flag.NewFlagSet("offers", flag.ContinueOnError)
		id := fs.Int64("id", 0, "subscription id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		offers, err := s.ListOffers(ctx, *id)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "POSTED AT\tPRICE\tTITLE\tURL")
		for _, o := range offers {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.PostedAt.Format(time.DateTime), o.Price, o.Title, o.URL)
		}
		return tw.Flush()

	case "seed":
		fs := flag.NewFlagSet("seed", flag.ContinueOnError)
		file := fs.String("file", "subscriptions.yaml", "seed file")
		if err := fs.Parse(args); err != nil {
			return err
		}
		seeds, err := store.LoadSeedFile(*file)
		if err != nil {
			return err
		}
		created, err := store.ApplySeeds(ctx, s, seeds)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created %d of %d subscriptions\n", created, len(seeds))
		return nil

	default:
		usage(out)
		return fmt.Errorf("unknown command %q", command)
	}
}
