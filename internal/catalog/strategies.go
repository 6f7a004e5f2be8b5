package catalog

import (
	"github.com/roach88/splitq/internal/split"
)

// SplitStrategies builds the strategy chain for the storage, column split
// first, then time split. The column names come from the storage's split
// block; limits come from column and timeCfg. A storage without split
// columns gets no strategies.
func (s *Storage) SplitStrategies(column split.ColumnConfig, timeCfg split.TimeConfig, opts ...split.Option) []split.Strategy {
	var strategies []split.Strategy

	sc := s.split
	if sc.IDColumn != "" && sc.ProjectColumn != "" && sc.TimestampColumn != "" {
		column.IDColumn = sc.IDColumn
		column.ProjectColumn = sc.ProjectColumn
		column.TimestampColumn = sc.TimestampColumn
		strategies = append(strategies, split.NewColumnSplit(column, opts...))
	}
	if sc.TimestampColumn != "" {
		timeCfg.TimestampColumn = sc.TimestampColumn
		strategies = append(strategies, split.NewTimeSplit(timeCfg, opts...))
	}
	return strategies
}
