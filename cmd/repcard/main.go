package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/repcard/repcard/internal/config"
	"github.com/repcard/repcard/internal/sched"
	"github.com/repcard/repcard/internal/storage"
	"github.com/repcard/repcard/internal/study"
	syncsrc "github.com/repcard/repcard/internal/sync"
)

const usage = `Usage: repcard [flags] <command> [args]

Commands:
  add-source <path|url>  Register a local directory or git repo of deck files
  sources                List registered sources
  sync                   Pull sources and reconcile decks into the database
  decks                  List decks
  seed                   Install the built-in welcome deck
  study <deck>           Study a deck (id or title)
  history                Show past study sessions

Flags:
`

func main() {
	// A .env file is optional; the environment wins over it.
	_ = godotenv.Load()

	defaults := config.Default()
	flags := pflag.NewFlagSet("repcard", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to a YAML config file")
	flags.String("db", defaults.DB, "Path to the SQLite database file")
	flags.String("user", defaults.User, "User the progress belongs to")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	db, err := storage.Open(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	switch args[0] {
	case "add-source":
		if len(args) < 2 {
			log.Fatal("Usage: repcard add-source <path|url>")
		}
		runAddSource(ctx, db, args[1])
	case "sources":
		runSources(ctx, db)
	case "sync":
		if err := syncsrc.RunSync(ctx, db, cfg.ReposDir); err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
	case "decks":
		runDecks(ctx, db)
	case "seed":
		if err := db.SeedWelcomeDeck(ctx); err != nil {
			log.Fatalf("Failed to seed welcome deck: %v", err)
		}
		fmt.Println("Welcome deck installed. Try: repcard study", storage.WelcomeDeckID)
	case "study":
		if len(args) < 2 {
			log.Fatal("Usage: repcard study <deck>")
		}
		runStudy(ctx, db, cfg, args[1])
	case "history":
		runHistory(ctx, db, cfg.User)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		flags.Usage()
		os.Exit(2)
	}
}

func runAddSource(ctx context.Context, db *storage.DB, path string) {
	sourceType := "local"
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		sourceType = "git"
	}
	id, err := db.InsertSource(ctx, path, sourceType)
	if err != nil {
		log.Fatalf("Failed to add source: %v", err)
	}
	fmt.Printf("Added %s source %d: %s\n", sourceType, id, path)
}

func runSources(ctx context.Context, db *storage.DB) {
	sources, err := db.GetAllSources(ctx)
	if err != nil {
		log.Fatalf("Failed to list sources: %v", err)
	}
	if len(sources) == 0 {
		fmt.Println("No sources. Add one with: repcard add-source <path|url>")
		return
	}
	for _, s := range sources {
		scanned := "never"
		if s.LastScanned.Valid {
			scanned = s.LastScanned.Time.Format("2006-01-02 15:04")
		}
		fmt.Printf("%4d  %-5s  %s  (scanned: %s)\n", s.ID, s.Type, s.Path, scanned)
	}
}

func runDecks(ctx context.Context, db *storage.DB) {
	decks, err := db.ListDecks(ctx)
	if err != nil {
		log.Fatalf("Failed to list decks: %v", err)
	}
	if len(decks) == 0 {
		fmt.Println("No decks. Run: repcard sync (or: repcard seed)")
		return
	}
	for _, d := range decks {
		cards, err := db.DeckCards(ctx, d.ID)
		if err != nil {
			log.Fatalf("Failed to load deck %s: %v", d.ID, err)
		}
		fmt.Printf("%-30s  %s (%d cards)\n", d.ID, d.Title, len(cards))
	}
}

func runHistory(ctx context.Context, db *storage.DB, userID string) {
	logs, err := db.StudyLogs(ctx, userID)
	if err != nil {
		log.Fatalf("Failed to load study history: %v", err)
	}
	if len(logs) == 0 {
		fmt.Println("No study sessions yet.")
		return
	}
	for _, l := range logs {
		fmt.Printf("%s  %-20s  %d cards in %.1fs\n",
			l.Timestamp.Format("2006-01-02 15:04"), l.DeckID, l.CardsStudied, float64(l.DurationMS)/1000)
	}
}

func runStudy(ctx context.Context, db *storage.DB, cfg config.Config, deckArg string) {
	deck, err := db.FindDeck(ctx, deckArg)
	if err != nil {
		log.Fatalf("Failed to find deck: %v", err)
	}
	if deck == nil {
		log.Fatalf("No deck matches %q. See: repcard decks", deckArg)
	}

	session, err := study.Begin(ctx, db, study.Config{
		UserID:                 cfg.User,
		DeckID:                 deck.ID,
		FallbackAllWhenNoneDue: cfg.Study.FallbackAllWhenNoneDue,
		IdleTimeout:            cfg.Study.IdleTimeout,
		PollInterval:           cfg.Study.PollInterval,
		MinLoggedActive:        cfg.Study.MinLoggedActive,
		Params:                 sched.Params{MaxIntervalDays: cfg.Study.MaxIntervalDays},
		Logger:                 slog.Default(),
	})
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	in := bufio.NewScanner(os.Stdin)
	fmt.Printf("Studying %s\n", deck.Title)

	if session.HasCheckpoint() {
		cp := session.Checkpoint()
		fmt.Printf("An unfinished session exists: card %d of %d, round %d.\n",
			cp.CurrentCardIndex+1, len(cp.CardOrder), cp.CurrentRound)
		for {
			fmt.Print("[r]esume, [d]iscard, or [q]uit? ")
			if !in.Scan() {
				return // checkpoint is left intact
			}
			session.Touch()
			answer := strings.ToLower(strings.TrimSpace(in.Text()))
			if answer == "r" {
				if err := session.Resume(ctx); err != nil {
					log.Fatalf("Failed to resume: %v", err)
				}
				break
			}
			if answer == "d" {
				if err := session.Discard(ctx); err != nil {
					log.Fatalf("Failed to discard: %v", err)
				}
				break
			}
			if answer == "q" {
				return
			}
		}
	}

	studyLoop(ctx, session, in)
}

// studyLoop drives the interactive session until it finishes or the
// user quits. Every line read counts as activity.
func studyLoop(ctx context.Context, session *study.Session, in *bufio.Scanner) {
	for {
		switch session.Phase() {
		case study.PhaseActive:
			if !presentCard(ctx, session, in) {
				session.Suspend(ctx)
				fmt.Println("Session saved. Run study again to resume.")
				return
			}
		case study.PhaseRoundComplete:
			stats := session.Stats()
			fmt.Printf("\nRound %d done: %d correct, %d incorrect, %d hints.\n",
				session.Round(), stats.Correct, stats.Incorrect, stats.Hints)
			fmt.Printf("%d card(s) to retry. Press enter for the next round, q to quit: ", session.RetryCount())
			if !in.Scan() || strings.TrimSpace(in.Text()) == "q" {
				session.Abandon(ctx)
				return
			}
			session.Touch()
			if err := session.NextRound(ctx); err != nil {
				log.Fatalf("Failed to start next round: %v", err)
			}
		case study.PhaseFinished:
			fmt.Println("\nAll done!")
			fmt.Print("Review the whole deck again? [y/N] ")
			if in.Scan() && strings.ToLower(strings.TrimSpace(in.Text())) == "y" {
				if err := session.Restart(ctx); err != nil {
					log.Fatalf("Failed to restart: %v", err)
				}
				continue
			}
			return
		default:
			return
		}
	}
}

// presentCard shows one card and records the rating. It returns false
// when the user quits.
func presentCard(ctx context.Context, session *study.Session, in *bufio.Scanner) bool {
	card, ok := session.Current()
	if !ok {
		return true
	}
	pos, total := session.Position()
	fmt.Printf("\n[Round %d, card %d/%d]\n", session.Round(), pos+1, total)
	fmt.Printf("Q: %s\n", card.Front)

	hintUsed := false
	for {
		prompt := "Press enter to reveal"
		if card.Hint != "" && !hintUsed {
			prompt += ", h for a hint"
		}
		fmt.Print(prompt + ", q to quit: ")
		if !in.Scan() {
			return false
		}
		session.Touch()
		answer := strings.ToLower(strings.TrimSpace(in.Text()))
		if answer == "q" {
			return false
		}
		if answer == "h" && card.Hint != "" {
			hintUsed = true
			fmt.Printf("Hint: %s\n", card.Hint)
			continue
		}
		break
	}

	fmt.Printf("A: %s\n", card.Back)
	for {
		fmt.Print("Did you get it? 1 = no, 2 = yes, q = quit: ")
		if !in.Scan() {
			return false
		}
		session.Touch()
		answer := strings.TrimSpace(in.Text())
		if answer == "q" {
			return false
		}

		var q sched.Quality
		switch answer {
		case "1":
			q = sched.Incorrect
		case "2":
			q = sched.Correct
		default:
			continue
		}

		if err := session.Rate(ctx, q, hintUsed); err != nil {
			if errors.Is(err, sched.ErrInvalidQuality) {
				continue
			}
			// The rating was not saved; the same card stays up.
			fmt.Printf("Could not save the rating (%v). Try again.\n", err)
			continue
		}
		return true
	}
}
