package session

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Record is one persisted conversation turn.
type Record struct {
	// Role is one of system, user, or assistant.
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// Timestamp marks when the turn was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// Store manages conversation persistence under ~/.loo. Sessions are
// grouped per project so `--continue` resumes the conversation for the
// workspace it was started in.
type Store struct {
	// BaseDir is the root for all persisted data.
	BaseDir string
}

// NewStore constructs a Store using the default base directory.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}
	return &Store{BaseDir: filepath.Join(home, ".loo")}, nil
}

// ProjectHash returns a stable hash for a workspace path.
func ProjectHash(path string) string {
	clean := filepath.Clean(path)
	sum := sha256.Sum256([]byte(clean))
	return hex.EncodeToString(sum[:8])
}

// sessionPath returns the JSONL path for one session of a project.
func (s *Store) sessionPath(projectHash string, sessionID string) string {
	return filepath.Join(s.BaseDir, "projects", projectHash, "sessions", sessionID+".jsonl")
}

// Append writes one record to a session log.
func (s *Store) Append(projectHash string, sessionID string, record Record) error {
	if projectHash == "" || sessionID == "" {
		return errors.New("project hash and session id required")
	}
	path := s.sessionPath(projectHash, sessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write session record: %w", err)
	}
	return nil
}

// Load reads all records from a session log in order. Malformed lines
// are skipped so a partially written log still resumes.
func (s *Store) Load(projectHash string, sessionID string) ([]Record, error) {
	file, err := os.Open(s.sessionPath(projectHash, sessionID))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	// Large assistant turns must not be dropped by the default buffer.
	const maxRecordSize = 10 * 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	return records, nil
}

// SaveLastSession stores the most recent session id for a project.
func (s *Store) SaveLastSession(projectHash string, sessionID string) error {
	path := filepath.Join(s.BaseDir, "projects", projectHash, "last_session")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(sessionID), 0o600); err != nil {
		return fmt.Errorf("write last session: %w", err)
	}
	return nil
}

// LastSession returns the most recent session id for a project.
func (s *Store) LastSession(projectHash string) (string, error) {
	path := filepath.Join(s.BaseDir, "projects", projectHash, "last_session")
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// ListSessions returns recent session ids for a project sorted by
// modification time, newest first.
func (s *Store) ListSessions(projectHash string, limit int) ([]string, error) {
	dir := filepath.Join(s.BaseDir, "projects", projectHash, "sessions")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	type entry struct {
		Name string
		Time time.Time
	}

	var list []entry
	for _, item := range entries {
		if item.IsDir() {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(item.Name(), filepath.Ext(item.Name()))
		list = append(list, entry{Name: name, Time: info.ModTime()})
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Time.After(list[j].Time)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	result := make([]string, 0, len(list))
	for _, item := range list {
		result = append(result, item.Name)
	}
	return result, nil
}
