package meterdb

type MeterDbMeasurement struct {
	Timestamp       int64   `db:"timestamp"`
	Source          string  `db:"source"`
	MeasurementType string  `db:"measurement_type"`
	Value           float64 `db:"value"`
}

// MeterDbHourlyAggregate summarises the measurements of one source and type
// within the hour starting at HourStart.
type MeterDbHourlyAggregate struct {
	HourStart       int64   `db:"hour_start"`
	Source          string  `db:"source"`
	MeasurementType string  `db:"measurement_type"`
	AvgValue        float64 `db:"avg_value"`
	MinValue        float64 `db:"min_value"`
	MaxValue        float64 `db:"max_value"`
	SampleCount     uint32  `db:"sample_count"`
}
