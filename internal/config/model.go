package config

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
)

// TieBreak selects how equal-scoring tickets are ordered.
type TieBreak string

const (
	TieBreakNewest TieBreak = "newest"
	TieBreakOldest TieBreak = "oldest"
)

// Factor is one toggleable, weighted scoring term.
type Factor struct {
	Enabled bool    `yaml:"enabled"`
	Weight  float64 `yaml:"weight"`
}

// PriorityModel configures the multi-factor scoring engine. When Enabled is
// false the engine falls back to legacy count-then-age ordering.
type PriorityModel struct {
	Enabled    bool               `yaml:"enabled"`
	Count      Factor             `yaml:"count"`
	Recency    Factor             `yaml:"recency"`
	Severity   Factor             `yaml:"severity"`
	Evidence   Factor             `yaml:"evidence"`
	Unassigned Factor             `yaml:"unassigned"`
	Aging      Factor             `yaml:"aging"`
	SLABreach  Factor             `yaml:"sla_breach"`
	DecayMs    int64              `yaml:"decay_ms"`
	SeverityBy map[string]float64 `yaml:"severity_table"`
	SLAMinutes map[string]float64 `yaml:"sla_minutes"`
}

// TaxonomyType is one report type with its categories, keyed by category key.
type TaxonomyType struct {
	Display    string            `yaml:"display"`
	Categories map[string]string `yaml:"categories"`
}

// modelFile is the on-disk YAML shape of the moderation model.
type modelFile struct {
	Taxonomy              map[string]TaxonomyType `yaml:"taxonomy"`
	StackingWindowSeconds int                     `yaml:"stacking_window_seconds"`
	TieBreak              TieBreak                `yaml:"tie_break"`
	PageSize              int                     `yaml:"page_size"`
	Priority              PriorityModel           `yaml:"priority"`
}

// Snapshot is one immutable, validated view of the moderation model.
// In-flight operations read whichever snapshot was current when they
// started; reload swaps the whole structure at once.
type Snapshot struct {
	Taxonomy       map[string]TaxonomyType
	StackingWindow time.Duration
	TieBreak       TieBreak
	PageSize       int
	Priority       PriorityModel
}

// DefaultDecayMs is the recency decay constant applied when the model file
// leaves it unset: fifteen minutes in milliseconds.
const DefaultDecayMs = 15 * 60 * 1000

// Resolve looks up a (type, category) pair in the taxonomy. Unknown keys
// yield ok=false, never an error, so callers can treat it as "unknown type,
// reject". Lookup is case-insensitive on both keys.
func (s *Snapshot) Resolve(typeKey, categoryKey string) (domain.Classification, bool) {
	typeKey = strings.ToLower(strings.TrimSpace(typeKey))
	categoryKey = strings.ToLower(strings.TrimSpace(categoryKey))
	typ, ok := s.Taxonomy[typeKey]
	if !ok {
		return domain.Classification{}, false
	}
	display, ok := typ.Categories[categoryKey]
	if !ok {
		return domain.Classification{}, false
	}
	return domain.Classification{
		TypeKey:         typeKey,
		TypeDisplay:     typ.Display,
		CategoryKey:     categoryKey,
		CategoryDisplay: display,
	}, true
}

// ModelStore holds the current model snapshot and reloads it from disk on
// demand.
type ModelStore struct {
	path string
	snap atomic.Pointer[Snapshot]
}

// LoadModel reads, validates and pins the model file at path.
func LoadModel(path string) (*ModelStore, error) {
	ms := &ModelStore{path: path}
	if err := ms.Reload(); err != nil {
		return nil, err
	}
	return ms, nil
}

// NewStaticModel wraps a fixed snapshot with no backing file. Reload is not
// supported on a static model.
func NewStaticModel(snap *Snapshot) *ModelStore {
	ms := &ModelStore{}
	ms.snap.Store(snap)
	return ms
}

// Snapshot returns the current immutable model view.
func (m *ModelStore) Snapshot() *Snapshot {
	return m.snap.Load()
}

// Reload re-reads the model file and swaps the snapshot wholesale. On any
// error the previous snapshot stays in effect.
func (m *ModelStore) Reload() error {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("read model file: %w", err)
	}
	var file modelFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse model file: %w", err)
	}
	snap, err := buildSnapshot(file)
	if err != nil {
		return err
	}
	m.snap.Store(snap)
	return nil
}

func buildSnapshot(file modelFile) (*Snapshot, error) {
	if file.StackingWindowSeconds < 0 {
		return nil, fmt.Errorf("stacking_window_seconds must be >= 0")
	}
	switch file.TieBreak {
	case "":
		file.TieBreak = TieBreakNewest
	case TieBreakNewest, TieBreakOldest:
	default:
		return nil, fmt.Errorf("invalid tie_break: %q", file.TieBreak)
	}
	if file.PageSize <= 0 {
		file.PageSize = 10
	}
	if file.Priority.DecayMs <= 0 {
		file.Priority.DecayMs = DefaultDecayMs
	}

	taxonomy := make(map[string]TaxonomyType, len(file.Taxonomy))
	for typeKey, typ := range file.Taxonomy {
		categories := make(map[string]string, len(typ.Categories))
		for catKey, display := range typ.Categories {
			categories[strings.ToLower(catKey)] = display
		}
		taxonomy[strings.ToLower(typeKey)] = TaxonomyType{
			Display:    typ.Display,
			Categories: categories,
		}
	}

	return &Snapshot{
		Taxonomy:       taxonomy,
		StackingWindow: time.Duration(file.StackingWindowSeconds) * time.Second,
		TieBreak:       file.TieBreak,
		PageSize:       file.PageSize,
		Priority:       file.Priority,
	}, nil
}
