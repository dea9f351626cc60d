package selector

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skilldigest/skilldigest/internal/skill"
	"github.com/skilldigest/skilldigest/internal/state"
)

// Log records which skill was selected for each calendar date, one file per
// date. It exists so that re-running the pipeline on the same day returns
// the pick made earlier that day instead of re-ranking a possibly refreshed
// catalog, which could disagree with an already generated article.
type Log struct {
	dir string
}

// NewLog creates a selection log rooted at dir.
func NewLog(dir string) *Log {
	return &Log{dir: dir}
}

type logEntry struct {
	Date       string      `json:"date"`
	SelectedAt time.Time   `json:"selected_at"`
	Skill      skill.Skill `json:"skill"`
}

// Get returns the skill previously logged for date, if any. A corrupt
// entry is an error: guessing here could publish a second item for the
// same day.
func (l *Log) Get(date string) (*skill.Skill, bool, error) {
	var entry logEntry
	if err := state.LoadJSON(l.path(date), &entry); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read selection log for %s: %w", date, err)
	}
	return &entry.Skill, true, nil
}

// Put records the skill selected for date.
func (l *Log) Put(date string, sk skill.Skill) error {
	entry := logEntry{
		Date:       date,
		SelectedAt: time.Now().UTC(),
		Skill:      sk,
	}
	if err := state.SaveJSON(l.path(date), &entry); err != nil {
		return fmt.Errorf("write selection log for %s: %w", date, err)
	}
	return nil
}

func (l *Log) path(date string) string {
	return filepath.Join(l.dir, date+".json")
}
