package aggregator

// Result reports what one aggregation run changed.
type Result struct {
	AggregatesWritten int64
	RawDeleted        int64
}
