// Package syncer reconciles deck sources with the card store: new cards
// get default memory records, cards whose content disappeared are pruned.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rishabhcli/cardgenie/internal/deck"
	"github.com/rishabhcli/cardgenie/internal/domain"
	"github.com/rishabhcli/cardgenie/internal/gitsource"
	"github.com/rishabhcli/cardgenie/internal/parser"
	"github.com/rishabhcli/cardgenie/internal/storage"
)

// SourceKind values stored in the sources table.
const (
	KindLocal = "local"
	KindGit   = "git"
)

// Syncer reconciles all configured sources against the store.
type Syncer struct {
	store    *storage.Store
	reposDir string
	// clock is injected so reconciliation timestamps are testable.
	clock func() time.Time
}

// New returns a Syncer that clones git sources under reposDir.
func New(store *storage.Store, reposDir string) *Syncer {
	return &Syncer{store: store, reposDir: reposDir, clock: time.Now}
}

// Run reconciles every configured source. Per-source failures are logged
// and skipped; Run only fails when the source list itself cannot be read.
func (s *Syncer) Run(ctx context.Context) error {
	sources, err := s.store.Sources()
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	if len(sources) == 0 {
		slog.Info("no sources configured")
		return nil
	}

	for _, src := range sources {
		dir := src.Path
		if src.Kind == KindGit {
			localPath, err := gitURLToLocalPath(s.reposDir, src.Path)
			if err != nil {
				slog.Error("bad git source", "url", src.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(ctx, src.Path, localPath); err != nil {
				slog.Error("git sync failed", "url", src.Path, "error", err)
				continue
			}
			dir = localPath
		}
		if err := s.reconcile(src.ID, dir); err != nil {
			slog.Error("reconcile failed", "source", src.Path, "error", err)
		}
	}
	return nil
}

// reconcile walks one source directory, inserting cards the store has not
// seen and pruning cards no longer present in any deck file.
func (s *Syncer) reconcile(sourceID int64, dir string) error {
	now := s.clock()
	found := make(map[string]bool)
	var inserted, parseErrors int

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		cards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors++
			slog.Warn("deck file unreadable", "path", path, "error", parseErr)
		}
		for _, card := range cards {
			card.ID = deck.ID(card)
			found[card.ID] = true

			added, err := s.insertIfNew(card, sourceID, now)
			if err != nil {
				parseErrors++
				slog.Warn("card insert failed", "id", card.ID, "error", err)
				continue
			}
			if added {
				inserted++
			}
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walk %s: %w", dir, walkErr)
	}

	pruned, err := s.pruneOrphans(sourceID, found)
	if err != nil {
		return err
	}

	if err := s.store.TouchSource(sourceID, now); err != nil {
		slog.Warn("could not stamp source", "source_id", sourceID, "error", err)
	}

	slog.Info("source reconciled",
		"dir", dir,
		"cards", len(found),
		"inserted", inserted,
		"pruned", pruned,
		"errors", parseErrors,
	)
	return nil
}

func (s *Syncer) insertIfNew(card domain.Card, sourceID int64, now time.Time) (bool, error) {
	_, err := s.store.FindCard(card.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}
	slog.Info("new card", "id", card.ID[:12], "front", card.Front)
	if err := s.store.InsertCard(card, sourceID, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Syncer) pruneOrphans(sourceID int64, found map[string]bool) (int, error) {
	ids, err := s.store.CardIDsBySource(sourceID)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, id := range ids {
		if found[id] {
			continue
		}
		if err := s.store.DeleteCard(id); err != nil {
			slog.Warn("orphan delete failed", "id", id, "error", err)
			continue
		}
		pruned++
	}
	return pruned, nil
}

// gitURLToLocalPath maps a git URL to a directory under baseDir, e.g.
// https://example.com/user/decks.git -> baseDir/example.com/user/decks.
// SSH-style URLs (git@host:user/repo.git) are supported as well.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		return filepath.Join(baseDir, parsed.Host, strings.TrimSuffix(parsed.Path, ".git")), nil
	}

	if at := strings.Index(repoURL, "@"); at >= 0 {
		if host, path, ok := strings.Cut(repoURL[at+1:], ":"); ok {
			return filepath.Join(baseDir, host, strings.TrimSuffix(path, ".git")), nil
		}
	}
	return "", fmt.Errorf("unsupported git URL: %s", repoURL)
}

// DetectKind classifies a source path as local or git.
func DetectKind(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return KindGit
	}
	return KindLocal
}

// EnsureReposDir creates the clone directory for git sources.
func EnsureReposDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create repos dir: %w", err)
	}
	return nil
}
