package sortnet

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	gorm "gorm.io/gorm"

	"nickandperla.net/sortnet/network"
)

var ErrRunNotFound = errors.New("run not found")

type PersistenceConfig struct {
	Name          string   `toml:"name" yaml:"name"`
	Path          string   `toml:"path" yaml:"path"`
	InMemory      bool     `toml:"in_memory" yaml:"in_memory"`
	SQLitePragmas []string `toml:"sqlite_pragmas" yaml:"sqlite_pragmas"`
	SQLiteOptions []string `toml:"sqlite_options" yaml:"sqlite_options"`
	BatchSize     int      `toml:"batch_size" yaml:"batch_size"`
}

// DSN is the sqlite connection string: path/name followed by the pragmas
// and options as query parameters. In memory databases are shared by name.
func (c *PersistenceConfig) DSN() string {
	params := make([]string, 0, len(c.SQLitePragmas)+len(c.SQLiteOptions)+2)
	for _, prag := range c.SQLitePragmas {
		params = append(params, "_pragma="+prag)
	}
	params = append(params, c.SQLiteOptions...)

	var dsn strings.Builder
	if c.InMemory {
		dsn.WriteString("file:")
		dsn.WriteString(c.Name)
		params = append([]string{"mode=memory", "cache=shared"}, params...)
	} else {
		dsn.WriteString(filepath.Join(c.Path, c.Name))
	}
	if len(params) > 0 {
		dsn.WriteRune('?')
		dsn.WriteString(strings.Join(params, "&"))
	}
	return dsn.String()
}

// Run is one engine invocation and its outcome.
type Run struct {
	ID             uint   `gorm:"primaryKey"`
	UUID           string `gorm:"uniqueIndex;size:36"`
	Mode           string
	Width          uint
	MaxComparators uint
	PopulationSize uint
	Generations    uint
	Seed           int64
	GenerationsRun uint
	Solved         bool
	Proven         bool
	BestPassed     uint
	BestTotal      uint
	BestSize       uint
	CreatedAt      time.Time
	FinishedAt     *time.Time
	Records        []GenerationRecord
	Networks       []NetworkRecord
}

// GenerationRecord is the persisted form of a GenerationReport.
type GenerationRecord struct {
	ID            uint `gorm:"primaryKey"`
	RunID         uint `gorm:"index"`
	Generation    uint
	BestPassed    uint
	BestTotal     uint
	MeanFitness   float64
	BestSize      uint
	Diversity     float64
	ParasiteCount uint
	Cases         uint
}

// NetworkRecord stores a champion network in the binary codec.
type NetworkRecord struct {
	ID          uint `gorm:"primaryKey"`
	RunID       uint `gorm:"index"`
	Generation  uint
	Width       uint
	Size        uint
	Passed      uint
	Total       uint
	Final       bool
	Comparators []byte `gorm:"type:blob"`
}

func (r *NetworkRecord) Network() (network.Network, error) {
	return network.Decode(r.Comparators)
}

type Persistence struct {
	Config *PersistenceConfig
	DB     *gorm.DB
}

func NewPersistence(config *PersistenceConfig) (*Persistence, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if !config.InMemory && len(config.Path) == 0 {
		return nil, fmt.Errorf("Path to database must be defined")
	}
	if len(config.Name) == 0 {
		return nil, fmt.Errorf("Name of database must be defined")
	}

	db, err := gorm.Open(sqlite.Open(config.DSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	batch := config.BatchSize
	if batch <= 0 {
		batch = 1000
	}
	db = db.Session(&gorm.Session{PrepareStmt: true, CreateBatchSize: batch})

	p := &Persistence{Config: config, DB: db}
	if err = p.initialize(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Persistence) initialize() error {
	return p.DB.AutoMigrate(
		&Run{},
		&GenerationRecord{},
		&NetworkRecord{},
	)
}

func (p *Persistence) Shutdown() {
	if sqldb, err := p.DB.DB(); err != nil {
		log.Fatalf("Failed to retrieve raw DB: %v", err)
	} else {
		sqldb.Close()
	}
}

// CreateRun records the start of a run configured by config.
func (p *Persistence) CreateRun(mode string, config *PopulationConfig, seed int64) (*Run, error) {
	if config == nil {
		return nil, fmt.Errorf("PopulationConfig cannot be nil")
	}
	run := &Run{
		UUID:           uuid.NewString(),
		Mode:           mode,
		Width:          config.Width,
		MaxComparators: config.MaxComparators,
		PopulationSize: config.PopulationSize,
		Generations:    config.Generations,
		Seed:           seed,
	}
	if result := p.DB.Create(run); result.Error != nil {
		return nil, fmt.Errorf("Failed to call gorm.Create(): %w", result.Error)
	}
	return run, nil
}

// FinishRun stores the outcome of run and its final champion.
func (p *Persistence) FinishRun(run *Run, result *Result) error {
	if run == nil || result == nil || result.Best == nil {
		return fmt.Errorf("run and result with a champion must be given")
	}
	now := time.Now()
	run.GenerationsRun = result.GenerationsRun
	run.Solved = result.Solved
	run.Proven = result.Proven
	run.BestPassed = result.Verification.Passed
	run.BestTotal = result.Verification.Total
	run.BestSize = uint(result.Best.Network.Len())
	run.FinishedAt = &now

	champion := &NetworkRecord{
		RunID:       run.ID,
		Generation:  result.Best.Generation,
		Width:       run.Width,
		Size:        run.BestSize,
		Passed:      result.Verification.Passed,
		Total:       result.Verification.Total,
		Final:       true,
		Comparators: network.Encode(result.Best.Network),
	}
	return p.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(run).Error; err != nil {
			return fmt.Errorf("failed to update run %s: %w", run.UUID, err)
		}
		if err := tx.Create(champion).Error; err != nil {
			return fmt.Errorf("failed to store champion of run %s: %w", run.UUID, err)
		}
		return nil
	})
}

// LoadRun loads a run with its generation history and networks, both in
// generation order.
func (p *Persistence) LoadRun(id string) (*Run, error) {
	var run Run
	err := p.DB.
		Preload("Records", func(db *gorm.DB) *gorm.DB { return db.Order("generation") }).
		Preload("Networks", func(db *gorm.DB) *gorm.DB { return db.Order("generation, id") }).
		Where("uuid = ?", id).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns every run, newest first, without its history.
func (p *Persistence) ListRuns() ([]Run, error) {
	var runs []Run
	if err := p.DB.Order("id desc").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// BestNetwork returns the final champion of a run, or the latest recorded
// champion when the run never finished.
func (p *Persistence) BestNetwork(id string) (network.Network, *NetworkRecord, error) {
	run, err := p.LoadRun(id)
	if err != nil {
		return nil, nil, err
	}
	if len(run.Networks) == 0 {
		return nil, nil, fmt.Errorf("run %s has no recorded networks", id)
	}
	record := &run.Networks[len(run.Networks)-1]
	for i := range run.Networks {
		if run.Networks[i].Final {
			record = &run.Networks[i]
		}
	}
	net, err := record.Network()
	if err != nil {
		return nil, nil, fmt.Errorf("corrupt network record %d: %w", record.ID, err)
	}
	return net, record, nil
}

// PruneResult counts what Prune deleted.
type PruneResult struct {
	DeletedRuns     int64
	DeletedRecords  int64
	DeletedNetworks int64
}

// Prune deletes all but the newest keep runs along with their history.
func (p *Persistence) Prune(keep int) (*PruneResult, error) {
	if keep < 0 {
		return nil, fmt.Errorf("cannot keep %d runs", keep)
	}
	var ids []uint
	if err := p.DB.Model(&Run{}).Order("id desc").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to find stale runs: %w", err)
	}
	result := &PruneResult{}
	if len(ids) <= keep {
		return result, nil
	}
	stale := ids[keep:]
	err := p.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("run_id IN ?", stale).Delete(&GenerationRecord{})
		if res.Error != nil {
			return res.Error
		}
		result.DeletedRecords = res.RowsAffected
		if res = tx.Where("run_id IN ?", stale).Delete(&NetworkRecord{}); res.Error != nil {
			return res.Error
		}
		result.DeletedNetworks = res.RowsAffected
		if res = tx.Delete(&Run{}, stale); res.Error != nil {
			return res.Error
		}
		result.DeletedRuns = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("prune failed: %w", err)
	}
	return result, nil
}

// RunRecorder persists every generation of one run. A new NetworkRecord is
// written whenever the champion changes.
type RunRecorder struct {
	persist *Persistence
	run     *Run
	last    network.Network
}

func (p *Persistence) Recorder(run *Run) *RunRecorder {
	return &RunRecorder{persist: p, run: run}
}

func (r *RunRecorder) ObserveGeneration(ctx context.Context, report *GenerationReport) error {
	db := r.persist.DB.WithContext(ctx)
	record := &GenerationRecord{
		RunID:         r.run.ID,
		Generation:    report.Generation,
		BestPassed:    report.BestFitness.Passed,
		BestTotal:     report.BestFitness.Total,
		MeanFitness:   report.MeanFitness,
		BestSize:      report.BestSize,
		Diversity:     report.Diversity,
		ParasiteCount: report.ParasiteCount,
		Cases:         report.Cases,
	}
	if err := db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to record generation %d: %w", report.Generation, err)
	}
	if r.last != nil && r.last.Equal(report.Best) {
		return nil
	}
	champion := &NetworkRecord{
		RunID:       r.run.ID,
		Generation:  report.Generation,
		Width:       report.Width,
		Size:        report.BestSize,
		Passed:      report.BestFitness.Passed,
		Total:       report.BestFitness.Total,
		Comparators: network.Encode(report.Best),
	}
	if err := db.Create(champion).Error; err != nil {
		return fmt.Errorf("failed to record champion of generation %d: %w", report.Generation, err)
	}
	r.last = report.Best.Clone()
	return nil
}
