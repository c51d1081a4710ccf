package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/trialclean-cli/internal/cleaning"
	"github.com/KaramelBytes/trialclean-cli/internal/utils"
)

const (
	manifestFileName = "run.json"
)

// Manifest records one clean run: what went in, what each rule did, and
// what was written.
type Manifest struct {
	ID         uuid.UUID       `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
	DataDir    string          `json:"data_dir"`
	Inputs     map[string]int  `json:"inputs"`
	Rules      []cleaning.Stat `json:"rules"`
	Counts     Counts          `json:"counts"`
	Outputs    []string        `json:"outputs"`
	Error      string          `json:"error,omitempty"`

	// Not serialized: directory holding run.json
	rootDir string `json:"-"`
}

// Counts summarises the cleaned tables.
type Counts struct {
	Patients          int `json:"patients"`
	Treatments        int `json:"treatments"`
	AdverseReactions  int `json:"adverse_reactions"`
	History           int `json:"treatment_history"`
	WithReaction      int `json:"with_reaction"`
	Unmatched         int `json:"unmatched"`
	DroppedContacts   int `json:"dropped_contacts"`
	MissedCorrections int `json:"missed_corrections"`
}

// New constructs a manifest stored under runsDir/<id>. Call Save() to persist.
func New(runsDir, dataDir string) *Manifest {
	id := uuid.New()
	return &Manifest{
		ID:        id,
		StartedAt: time.Now().UTC(),
		DataDir:   dataDir,
		Inputs:    map[string]int{},
		rootDir:   filepath.Join(runsDir, id.String()),
	}
}

// Load reads run.json from the provided directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse run: %w", err)
	}
	m.rootDir = dir
	return &m, nil
}

// Dir returns the on-disk run directory.
func (m *Manifest) Dir() string { return m.rootDir }

// Finish stamps the finish time and records err, if any.
func (m *Manifest) Finish(err error) {
	m.FinishedAt = time.Now().UTC()
	if err != nil {
		m.Error = err.Error()
	}
}

// Save writes run.json using atomic write.
func (m *Manifest) Save() error {
	if m.rootDir == "" {
		return errors.New("run directory not set")
	}
	return utils.WriteJSON(filepath.Join(m.rootDir, manifestFileName), m)
}

// List loads every run under runsDir, newest first. A missing runsDir is
// not an error.
func List(runsDir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []*Manifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(runsDir, e.Name())
		if _, err := os.Stat(filepath.Join(dir, manifestFileName)); err != nil {
			continue
		}
		m, err := Load(dir)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// Find resolves a run by full id or unique id prefix.
func Find(runsDir, ref string) (*Manifest, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return nil, errors.New("run id is required")
	}
	runs, err := List(runsDir)
	if err != nil {
		return nil, err
	}
	var hit *Manifest
	for _, m := range runs {
		if !strings.HasPrefix(m.ID.String(), ref) {
			continue
		}
		if hit != nil {
			return nil, fmt.Errorf("run id %q is ambiguous", ref)
		}
		hit = m
	}
	if hit == nil {
		return nil, fmt.Errorf("run %q not found in %s", ref, runsDir)
	}
	return hit, nil
}
