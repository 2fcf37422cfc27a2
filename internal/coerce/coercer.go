// Package coerce reconciles an input table with a reference schema: it
// projects the reference columns and converts their values to the
// representation each column type expects.
package coerce

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"etlcore/internal/etlerr"
	"etlcore/internal/schema"
	"etlcore/internal/table"

	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// MaxVarCharLength is the widest VARCHAR that gets an explicit length.
// Columns at or above it stay unbounded.
const MaxVarCharLength = 8000

var (
	// errBadValue nulls a single cell.
	errBadValue = errors.New("value cannot be converted")
	// errUnsupportedKind fails the whole column.
	errUnsupportedKind = errors.New("unsupported value kind")
)

// converter converts one cell. (nil, nil) is a null result.
type converter func(v any) (any, error)

// Result is the outcome of a reconcile pass.
type Result struct {
	Table     *table.Table
	Reference *schema.Reference // refined: VarChar lengths filled in
	Nulled    map[string]int    // cells turned to null, per column
	Failures  []etlerr.ColumnFailure
}

type Coercer struct {
	log logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Coercer {
	return &Coercer{log: log}
}

// Reconcile projects input onto ref and coerces every column. The input table
// is not modified. When some column could not be converted, the best-effort
// result is returned together with a *etlerr.CoercionError.
func (c *Coercer) Reconcile(input *table.Table, ref *schema.Reference) (*Result, error) {
	out, err := Project(input, ref)
	if err != nil {
		return nil, err
	}

	res := &Result{Table: out, Nulled: make(map[string]int)}
	for _, step := range []func(*table.Table, *schema.Reference) (map[string]int, []etlerr.ColumnFailure){
		CoerceNumeric,
		CoerceTemporal,
	} {
		nulled, failures := step(out, ref)
		for col, n := range nulled {
			res.Nulled[col] += n
		}
		res.Failures = append(res.Failures, failures...)
	}
	res.Reference = SizeVarChar(out, ref)

	for col, n := range res.Nulled {
		c.log.WithFields(logrus.Fields{"table": ref.Table(), "column": col, "cells": n}).
			Warn("Unconvertible values set to null")
	}
	if len(res.Failures) > 0 {
		for _, f := range res.Failures {
			c.log.WithFields(logrus.Fields{"table": ref.Table(), "column": f.Column, "type": f.Type}).
				WithError(f.Err).Error("Column conversion failed")
		}
		return res, &etlerr.CoercionError{Failures: res.Failures}
	}
	return res, nil
}

// HandleNullableInts would keep integer columns with nulls from widening.
// Every int64 cell already holds nulls as nil, so nothing calls for it yet.
func (c *Coercer) HandleNullableInts(t *table.Table, ref *schema.Reference) (*table.Table, error) {
	return nil, fmt.Errorf("nullable int handling: %w", etlerr.ErrNotImplemented)
}

// AlignTypes would make the column types of two tables agree.
func (c *Coercer) AlignTypes(a, b *table.Table) error {
	return fmt.Errorf("type alignment: %w", etlerr.ErrNotImplemented)
}

// Project returns a copy of input holding exactly the reference columns in
// reference order. Missing columns yield a *etlerr.MissingColumnError listing
// all of them.
func Project(input *table.Table, ref *schema.Reference) (*table.Table, error) {
	out, missing := input.Project(ref.Names())
	if len(missing) > 0 {
		return nil, &etlerr.MissingColumnError{Columns: missing}
	}
	return out, nil
}

// CoerceNumeric converts integer, decimal and float columns of t in place.
func CoerceNumeric(t *table.Table, ref *schema.Reference) (map[string]int, []etlerr.ColumnFailure) {
	return coerceColumns(t, ref, schema.ColumnType.IsNumeric, numericConverter)
}

// CoerceTemporal converts date and time columns of t in place.
func CoerceTemporal(t *table.Table, ref *schema.Reference) (map[string]int, []etlerr.ColumnFailure) {
	return coerceColumns(t, ref, schema.ColumnType.IsTemporal, temporalConverter)
}

// SizeVarChar returns ref with each unset VarChar length set to the longest
// value observed in t, when that is below MaxVarCharLength.
func SizeVarChar(t *table.Table, ref *schema.Reference) *schema.Reference {
	lengths := make(map[string]int)
	if t.Len() == 0 {
		return ref.WithLength(lengths)
	}
	for _, col := range ref.Columns() {
		if col.Type != schema.VarChar || col.Length != 0 {
			continue
		}
		i := t.Index(col.Name)
		if i < 0 {
			continue
		}
		longest := 0
		for _, row := range t.Rows {
			if n := utf8.RuneCountInString(table.FormatValue(row[i])); n > longest {
				longest = n
			}
		}
		if longest < MaxVarCharLength {
			lengths[col.Name] = max(longest, 1)
		}
	}
	return ref.WithLength(lengths)
}

// WidenVarCharToBytes returns ref with each bounded VarChar length raised to
// the longest UTF-8 encoded value in t, for engines whose VARCHAR(n) counts
// bytes. A column whose encoded values reach MaxVarCharLength becomes unbounded.
func WidenVarCharToBytes(t *table.Table, ref *schema.Reference) *schema.Reference {
	lengths := make(map[string]int)
	for _, col := range ref.Columns() {
		if col.Type != schema.VarChar || col.Length == 0 {
			continue
		}
		i := t.Index(col.Name)
		if i < 0 {
			continue
		}
		longest := 0
		for _, row := range t.Rows {
			longest = max(longest, len(table.FormatValue(row[i])))
		}
		switch {
		case longest >= MaxVarCharLength:
			lengths[col.Name] = 0
		case longest > col.Length:
			lengths[col.Name] = longest
		}
	}
	return ref.WithLength(lengths)
}

func coerceColumns(t *table.Table, ref *schema.Reference, match func(schema.ColumnType) bool,
	conv func(schema.ColumnType) converter) (map[string]int, []etlerr.ColumnFailure) {

	nulled := make(map[string]int)
	var failures []etlerr.ColumnFailure
	for _, col := range ref.Columns() {
		if !match(col.Type) {
			continue
		}
		i := t.Index(col.Name)
		if i < 0 {
			continue
		}
		n, err := convertColumn(t, i, conv(col.Type))
		if err != nil {
			failures = append(failures, etlerr.ColumnFailure{Column: col.Name, Type: col.Type.String(), Err: err})
			continue
		}
		if n > 0 {
			nulled[col.Name] = n
		}
	}
	return nulled, failures
}

// convertColumn rewrites column i only when every cell converted or was
// nulled. A column-level error leaves the original values in place.
func convertColumn(t *table.Table, i int, conv converter) (nulled int, err error) {
	defer func() {
		if r := recover(); r != nil {
			nulled, err = 0, fmt.Errorf("panic: %v", r)
		}
	}()

	src := t.Column(i)
	out := make([]any, len(src))
	for r, v := range src {
		c, cerr := conv(v)
		switch {
		case errors.Is(cerr, errUnsupportedKind):
			return 0, fmt.Errorf("row %d: %w: %T", r, cerr, v)
		case cerr != nil:
			nulled++
			c = nil
		}
		out[r] = c
	}
	t.SetColumn(i, out)
	return nulled, nil
}

// isKnownValue reports whether v is one of the value kinds a table may hold.
func isKnownValue(v any) bool {
	switch v.(type) {
	case nil, string, []byte, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		time.Time, decimal.Decimal, civil.Date, civil.DateTime:
		return true
	}
	return false
}
