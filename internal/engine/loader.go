package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"etlcore/internal/coerce"
	"etlcore/internal/dialect"
	"etlcore/internal/etlerr"
	"etlcore/internal/schema"
	"etlcore/internal/table"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	StagePrefix              = "RAW_"
	DefaultKillFillProcedure = "dbo.spETL_KillFillDSQL"
)

// Executor runs statements that return no rows. *sqlx.DB satisfies it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Stager writes a reconciled table to a staging table, replacing it.
type Stager interface {
	Stage(ctx context.Context, name dialect.TableName, ref *schema.Reference, t *table.Table) (int, error)
}

// MetricsReporter receives per-stage timings and row counts of each load.
type MetricsReporter interface {
	RecordStage(table string, stage etlerr.Stage, duration time.Duration, err error)
	RecordRows(table string, staged, nulled int)
}

type NoopMetrics struct{}

func (NoopMetrics) RecordStage(string, etlerr.Stage, time.Duration, error) {}
func (NoopMetrics) RecordRows(string, int, int)                            {}

type LoadRequest struct {
	Database    string // database holding the destination table
	StageDB     string
	StageSchema string
	DestSchema  string
	Table       string
}

type LoadResult struct {
	RunID      uuid.UUID
	StageTable string
	Columns    []schema.Column // refined reference columns
	RowsStaged int
	Nulled     map[string]int
	Failures   []etlerr.ColumnFailure
	Durations  map[etlerr.Stage]time.Duration
}

type LoaderOptions struct {
	Org                    string
	KillFillProcedure      string
	TolerateCoercionErrors bool
}

// Loader runs resolve, reconcile, stage and kill-and-fill for one table at a
// time. Concurrent loads of the same table are not coordinated.
type Loader struct {
	resolver *schema.Resolver
	coercer  *coerce.Coercer
	stager   Stager
	exec     Executor
	d        dialect.Dialect
	opts     LoaderOptions
	metrics  MetricsReporter
	log      logrus.FieldLogger
}

func NewLoader(resolver *schema.Resolver, coercer *coerce.Coercer, stager Stager, exec Executor,
	d dialect.Dialect, opts LoaderOptions, log logrus.FieldLogger) *Loader {
	if opts.KillFillProcedure == "" {
		opts.KillFillProcedure = DefaultKillFillProcedure
	}
	return &Loader{
		resolver: resolver,
		coercer:  coercer,
		stager:   stager,
		exec:     exec,
		d:        d,
		opts:     opts,
		metrics:  NoopMetrics{},
		log:      log,
	}
}

// WithMetrics sets the reporter that receives stage timings.
func (l *Loader) WithMetrics(m MetricsReporter) *Loader {
	l.metrics = m
	return l
}

// Load replaces the destination table with raw. raw is not modified.
// On failure the partially filled result is returned with a *etlerr.StageError.
func (l *Loader) Load(ctx context.Context, req LoadRequest, raw *table.Table) (*LoadResult, error) {
	res := &LoadResult{
		RunID:     uuid.New(),
		Nulled:    map[string]int{},
		Durations: map[etlerr.Stage]time.Duration{},
	}
	log := l.log.WithFields(logrus.Fields{"run_id": res.RunID.String(), "table": req.Table})

	if err := dialect.ValidateName(req.Database, req.StageDB, req.StageSchema, req.DestSchema, req.Table); err != nil {
		return res, &etlerr.StageError{Stage: etlerr.StageResolve, Table: req.Table, Err: fmt.Errorf("%w: %w", etlerr.ErrInvalidConfig, err)}
	}

	var ref *schema.Reference
	err := l.run(res, log, etlerr.StageResolve, req.Table, func() (err error) {
		ref, err = l.resolver.Resolve(ctx, req.Database, req.DestSchema, req.Table)
		if err == nil && ref.Len() == 0 {
			err = fmt.Errorf("%w: no column of %s has a supported type", etlerr.ErrSchemaResolution, req.Table)
		}
		return err
	})
	if err != nil {
		return res, err
	}

	var rec *coerce.Result
	err = l.run(res, log, etlerr.StageCoerce, req.Table, func() (err error) {
		rec, err = l.coercer.Reconcile(raw, ref)
		if rec != nil {
			res.Columns = rec.Reference.Columns()
			res.Nulled = rec.Nulled
			res.Failures = rec.Failures
		}
		var ce *etlerr.CoercionError
		if errors.As(err, &ce) && l.opts.TolerateCoercionErrors {
			log.WithField("columns", len(ce.Failures)).Warn("Continuing with unconverted columns")
			return nil
		}
		return err
	})
	if err != nil {
		return res, err
	}

	stage := dialect.TableName{
		Database: req.StageDB,
		Schema:   l.d.GetSchemaName(req.StageSchema),
		Name:     StagePrefix + req.Table,
	}
	res.StageTable = l.d.QualifiedName(stage)
	err = l.run(res, log, etlerr.StageStaging, req.Table, func() (err error) {
		res.RowsStaged, err = l.stager.Stage(ctx, stage, rec.Reference, rec.Table)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", etlerr.ErrStagingWrite, res.StageTable, err)
		}
		return nil
	})
	nulled := 0
	for _, n := range res.Nulled {
		nulled += n
	}
	l.metrics.RecordRows(req.Table, res.RowsStaged, nulled)
	if err != nil {
		return res, err
	}

	err = l.run(res, log, etlerr.StageKillFill, req.Table, func() error {
		return l.killFill(ctx, req)
	})
	if err != nil {
		return res, err
	}

	log.WithFields(logrus.Fields{
		"stage_table": res.StageTable,
		"rows":        res.RowsStaged,
		"nulled":      nulled,
	}).Info("Load completed")
	return res, nil
}

func (l *Loader) killFill(ctx context.Context, req LoadRequest) error {
	if err := dialect.ValidateName(l.opts.KillFillProcedure); err != nil {
		return fmt.Errorf("%w: %w", etlerr.ErrKillFill, err)
	}
	call, err := l.d.KillFillCall(l.opts.KillFillProcedure)
	if err != nil {
		return fmt.Errorf("%w: %w", etlerr.ErrKillFill, err)
	}
	if _, err := l.exec.ExecContext(ctx, call, req.Table, l.opts.Org, req.StageDB, l.d.GetSchemaName(req.DestSchema)); err != nil {
		return fmt.Errorf("%w: %s: %w", etlerr.ErrKillFill, l.opts.KillFillProcedure, err)
	}
	return nil
}

// RunProcedure executes database.schemaName.procedure without parameters.
func (l *Loader) RunProcedure(ctx context.Context, database, schemaName, procedure string) error {
	log := l.log.WithField("procedure", procedure)
	start := time.Now()
	err := l.runProcedure(ctx, database, schemaName, procedure)
	l.metrics.RecordStage(procedure, etlerr.StageProc, time.Since(start), err)
	if err != nil {
		log.WithError(err).Error("Stored procedure failed")
		return &etlerr.StageError{Stage: etlerr.StageProc, Table: procedure, Err: err}
	}
	log.WithField("duration", time.Since(start)).Info("Stored procedure completed")
	return nil
}

func (l *Loader) runProcedure(ctx context.Context, database, schemaName, procedure string) error {
	if procedure == "" {
		return fmt.Errorf("%w: procedure name is required", etlerr.ErrProcedure)
	}
	if err := dialect.ValidateName(database, schemaName, procedure); err != nil {
		return fmt.Errorf("%w: %w", etlerr.ErrProcedure, err)
	}
	call, err := l.d.ProcedureCall(dialect.TableName{
		Database: database,
		Schema:   l.d.GetSchemaName(schemaName),
		Name:     procedure,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", etlerr.ErrProcedure, err)
	}
	if _, err := l.exec.ExecContext(ctx, call); err != nil {
		return fmt.Errorf("%w: %w", etlerr.ErrProcedure, err)
	}
	return nil
}

// RunProcWithParams would run a procedure with named parameters.
func (l *Loader) RunProcWithParams(ctx context.Context, database, schemaName, procedure string, params map[string]any) error {
	return fmt.Errorf("run procedure with params: %w", etlerr.ErrNotImplemented)
}

// Upsert would merge raw into the destination instead of replacing it.
func (l *Loader) Upsert(ctx context.Context, req LoadRequest, raw *table.Table) (*LoadResult, error) {
	return nil, fmt.Errorf("upsert: %w", etlerr.ErrNotImplemented)
}

// run times fn, reports it, and wraps a failure with the stage.
func (l *Loader) run(res *LoadResult, log logrus.FieldLogger, stage etlerr.Stage, tbl string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	res.Durations[stage] = elapsed
	l.metrics.RecordStage(tbl, stage, elapsed, err)

	entry := log.WithFields(logrus.Fields{"stage": stage, "duration": elapsed})
	if err != nil {
		entry.WithError(err).Error("Load stage failed")
		return &etlerr.StageError{Stage: stage, Table: tbl, Err: err}
	}
	entry.Debug("Load stage completed")
	return nil
}
