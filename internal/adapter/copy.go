package adapter

import (
	"context"
	"log/slog"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/schema"
)

// Copy creates dataset dt through tr and inserts the rows of ds, converting
// both for what the destination supports. ds must follow dt. It fails with
// CAPABILITY_MISMATCH when some property has no automatic conversion; use
// CopyWith with an adjusted Converter then.
func Copy(ctx context.Context, tr datasource.Transactor, dt *schema.DataSetType, ds dataset.DataSet, opts datasource.Options) error {
	conv := NewConverter(dt, tr.DataSource().Capabilities().DataType)
	return CopyWith(ctx, tr, conv, ds, opts)
}

// CopyWith is Copy with an explicit converter.
func CopyWith(ctx context.Context, tr datasource.Transactor, conv *Converter, ds dataset.DataSet, opts datasource.Options) error {
	ad, err := NewAdapter(ds, conv, false)
	if err != nil {
		return err
	}
	out, err := conv.Result()
	if err != nil {
		return err
	}
	strip(out, tr.DataSource().Capabilities().DataSetType)

	if err := tr.CreateDataSet(ctx, out, opts); err != nil {
		return err
	}
	if err := tr.Add(ctx, out.Name(), ad, opts); err != nil {
		return err
	}
	slog.Info("dataset copied",
		"dataset", out.Name(),
		"datasource", tr.DataSource().Type(),
		"properties", out.NumProperties(),
	)
	return nil
}

// strip removes the constructs the destination cannot create.
func strip(dt *schema.DataSetType, caps capabilities.DataSetTypeCapabilities) {
	if !caps.PrimaryKey && dt.PrimaryKey() != nil {
		_ = dt.DropPrimaryKey()
	}
	if !caps.UniqueKey {
		for _, uk := range dt.UniqueKeys() {
			_ = dt.RemoveUniqueKey(uk.Name)
		}
	}
	if !caps.Index {
		for _, ix := range dt.Indexes() {
			_ = dt.RemoveIndex(ix.Name)
		}
	}
	if !caps.CheckConstraints {
		for _, cc := range dt.CheckConstraints() {
			_ = dt.RemoveCheckConstraint(cc.Name)
		}
	}
}
