// Package artifact stores generated run outputs (articles and cover
// images) under deterministic names derived from the run date and the
// skill identity. Deterministic naming is what lets a retry detect that
// content already exists instead of regenerating it.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/skilldigest/skilldigest/internal/skill"
	"github.com/skilldigest/skilldigest/internal/state"
)

// Key identifies one run's artifacts. Date and Identity drive the name;
// Name only contributes a readable slug.
type Key struct {
	Date     string
	Identity string
	Name     string
}

// baseName is "<date>-<slug>-<id8>", e.g. 2026-02-10-pdf-toolkit-3f2a91bc.
// The identity hash keeps names unique even when two skills slug equally.
func (k Key) baseName() string {
	slug := skill.Slug(k.Name)
	if slug == "" {
		slug = "skill"
	}
	return fmt.Sprintf("%s-%s-%s", k.Date, slug, shortID(k.Identity))
}

func shortID(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:4])
}

// Store writes artifacts under dir, covers in a covers/ subdirectory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates an artifact store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, logger: slog.Default()}
}

// ArticlePath returns where the article for k lives, whether or not it
// exists yet.
func (s *Store) ArticlePath(k Key) string {
	return filepath.Join(s.dir, k.baseName()+".md")
}

// CoverPath returns where the cover image for k lives.
func (s *Store) CoverPath(k Key) string {
	return filepath.Join(s.dir, "covers", k.baseName()+".png")
}

// Exists reports whether an article was already generated for k.
func (s *Store) Exists(k Key) bool {
	info, err := os.Stat(s.ArticlePath(k))
	return err == nil && !info.IsDir() && info.Size() > 0
}

// SaveArticle writes the article markdown atomically.
func (s *Store) SaveArticle(k Key, markdown []byte) error {
	path := s.ArticlePath(k)
	if err := state.WriteFileAtomic(path, markdown, 0644); err != nil {
		return fmt.Errorf("save article: %w", err)
	}
	s.logger.Info("article saved", "path", path, "bytes", len(markdown))
	return nil
}

// SaveCover writes the cover PNG atomically. A nil image is a no-op:
// covers are a best-effort extra, articles are not.
func (s *Store) SaveCover(k Key, png []byte) error {
	if len(png) == 0 {
		return nil
	}
	path := s.CoverPath(k)
	if err := state.WriteFileAtomic(path, png, 0644); err != nil {
		return fmt.Errorf("save cover: %w", err)
	}
	s.logger.Info("cover saved", "path", path, "bytes", len(png))
	return nil
}

// LoadArticle reads back the article for k, for re-publishing an already
// generated artifact after an earlier publish failure.
func (s *Store) LoadArticle(k Key) ([]byte, error) {
	data, err := os.ReadFile(s.ArticlePath(k))
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}
	return data, nil
}
