package sync

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/repcard/repcard/internal/cardid"
	"github.com/repcard/repcard/internal/domain"
	"github.com/repcard/repcard/internal/gitsource"
	"github.com/repcard/repcard/internal/parser"
	"github.com/repcard/repcard/internal/storage"
)

// RunSync iterates over all sources and reconciles them into the
// database. Each .md file under a source becomes one deck; the deck id
// is derived from the file's relative path so it survives re-syncs.
func RunSync(ctx context.Context, db *storage.DB, reposDir string) error {
	slog.Info("Starting sync process for all sources...")
	sources, err := db.GetAllSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with: repcard add-source <path/or/url.git>")
		return nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		sourceToReconcile := source

		if source.Type == "git" {
			localRepoPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}

			if err := gitsource.Sync(ctx, source.Path, localRepoPath); err != nil {
				slog.Error("Error syncing git repo", "url", source.Path, "error", err)
				continue
			}

			sourceToReconcile.Path = localRepoPath
		}

		reconcileLocalSource(ctx, db, &sourceToReconcile, source.ID)
	}
	slog.Info("Sync process complete.")
	return nil
}

func reconcileLocalSource(ctx context.Context, db *storage.DB, source *storage.Source, sourceID int64) {
	foundDeckIDs := make(map[string]bool)
	var parseErrors []error
	var totalCards int

	walkErr := filepath.WalkDir(source.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		deck, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		if len(deck.Cards) == 0 {
			return nil
		}

		rel, relErr := filepath.Rel(source.Path, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}
		deck.ID = deckIDForPath(rel)
		if deck.Title == "" {
			deck.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		foundDeckIDs[deck.ID] = true

		if reconcileErr := reconcileDeck(ctx, db, deck.ID, deck.Title, sourceID, deck.Cards); reconcileErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("reconciling %s: %w", path, reconcileErr))
			return nil
		}
		totalCards += len(deck.Cards)
		return nil
	})

	if walkErr != nil {
		slog.Error("Error walking directory", "path", source.Path, "error", walkErr)
		return
	}

	// Decks whose file disappeared since the last sync are removed.
	// Progress is keyed by content id, so it survives if a card returns.
	dbDecks, err := db.DecksBySource(ctx, sourceID)
	if err != nil {
		slog.Error("Error getting decks for source", "source_id", sourceID, "error", err)
		return
	}
	var orphanedDecks int
	for _, deckID := range dbDecks {
		if !foundDeckIDs[deckID] {
			slog.Info("Orphaned deck, deleting", "deck", deckID)
			orphanedDecks++
			if err := db.DeleteDeck(ctx, deckID); err != nil {
				slog.Warn("Failed to delete orphaned deck", "deck", deckID, "error", err)
			}
		}
	}

	if err := db.UpdateSourceLastScanned(ctx, sourceID); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", sourceID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"decks", len(foundDeckIDs),
		"cards", totalCards,
		"orphaned_decks", orphanedDecks,
		"errors", len(parseErrors),
	)
	for _, perr := range parseErrors {
		slog.Warn("sync issue", "error", perr)
	}
}

func reconcileDeck(ctx context.Context, db *storage.DB, deckID, title string, sourceID int64, cards []domain.Card) error {
	if err := db.UpsertDeck(ctx, deckID, title, sql.NullInt64{Int64: sourceID, Valid: true}); err != nil {
		return err
	}

	existing, err := db.DeckCards(ctx, deckID)
	if err != nil {
		return err
	}
	existingIDs := make(map[string]bool, len(existing))
	for _, c := range existing {
		existingIDs[c.ID] = true
	}

	foundIDs := make(map[string]bool, len(cards))
	for position, card := range cards {
		card.ID = cardid.Hash(card)
		if foundIDs[card.ID] {
			continue // duplicate content within one file
		}
		foundIDs[card.ID] = true

		if existingIDs[card.ID] {
			continue
		}
		slog.Info("New card found, inserting...", "deck", deckID, "id", card.ID)
		if err := db.InsertCard(ctx, deckID, card, position); err != nil {
			return err
		}
	}

	for _, c := range existing {
		if !foundIDs[c.ID] {
			slog.Info("Orphaned card, deleting", "deck", deckID, "id", c.ID)
			if err := db.DeleteCard(ctx, deckID, c.ID); err != nil {
				slog.Warn("Failed to delete orphaned card", "id", c.ID, "error", err)
			}
		}
	}
	return nil
}

func deckIDForPath(rel string) string {
	id := filepath.ToSlash(rel)
	id = strings.TrimSuffix(id, filepath.Ext(id))
	id = strings.ToLower(id)
	id = strings.ReplaceAll(id, " ", "-")
	return id
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-style URL, e.g. git@github.com:user/repo.git
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
