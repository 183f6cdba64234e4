package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/matiasroldan/adambot/internal/validate"
)

// File layout constants.
const (
	sessionFilePrefix = "session_"
	sessionFileSuffix = ".json"
	mirrorDirPerm     = 0750
	mirrorFilePerm    = 0600
)

// FileMirror stores one JSON file per session, written atomically via a
// temp file and rename so a crash never leaves a partial record.
type FileMirror struct {
	directory string
	logger    zerolog.Logger
}

// NewFileMirror creates the mirror directory if needed.
func NewFileMirror(directory string, logger zerolog.Logger) (*FileMirror, error) {
	if err := os.MkdirAll(directory, mirrorDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	return &FileMirror{
		directory: directory,
		logger:    logger.With().Str("component", "session.mirror").Logger(),
	}, nil
}

// Save writes the session record atomically.
func (f *FileMirror) Save(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session %d: %w", sess.UserID, err)
	}

	filename := f.path(sess.UserID)
	tempFile := filename + ".tmp"

	if err := os.WriteFile(tempFile, data, mirrorFilePerm); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tempFile, filename); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to commit session file: %w", err)
	}
	return nil
}

// Delete removes the session record; an absent file is fine.
func (f *FileMirror) Delete(userID int64) error {
	err := os.Remove(f.path(userID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// LoadAll reads every session record in the directory. Records that fail to
// parse are skipped with a warning rather than aborting recovery.
func (f *FileMirror) LoadAll() (map[int64]*Session, error) {
	entries, err := os.ReadDir(f.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read mirror directory: %w", err)
	}

	sessions := make(map[int64]*Session)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, sessionFilePrefix) || !strings.HasSuffix(name, sessionFileSuffix) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(f.directory, name)) // #nosec G304 - path is within the configured mirror directory
		if err != nil {
			f.logger.Warn().Str("file", name).Err(err).Msg("skipping unreadable session record")
			continue
		}

		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			f.logger.Warn().Str("file", name).Err(err).Msg("skipping corrupt session record")
			continue
		}
		if sess.Answers == nil {
			sess.Answers = make(map[Stage][]validate.Answer)
		}
		sessions[sess.UserID] = &sess
	}
	return sessions, nil
}

// Close has nothing to release for the file mirror.
func (f *FileMirror) Close() error { return nil }

// path returns the record filename for a user id.
func (f *FileMirror) path(userID int64) string {
	return filepath.Join(f.directory, sessionFilePrefix+strconv.FormatInt(userID, 10)+sessionFileSuffix)
}
