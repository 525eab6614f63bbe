package meterdb

import (
	"database/sql"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
)

func FromMeasurement(m types.Measurement) MeterDbMeasurement {
	return MeterDbMeasurement{
		Timestamp:       m.Timestamp.Unix(),
		Source:          m.Source,
		MeasurementType: m.Type.Identifier,
		Value:           m.Value,
	}
}

func InsertMeasurement(db *sql.DB, m *MeterDbMeasurement) error {
	_, err := db.Exec(
		"INSERT INTO measurements (timestamp, source, measurement_type, value) "+
			"VALUES (?, ?, ?, ?)",
		m.Timestamp,
		m.Source,
		m.MeasurementType,
		m.Value,
	)
	if err != nil {
		return err
	}
	return nil
}

// InsertMeasurements stores a batch in one transaction.
func InsertMeasurements(db *sql.DB, measurements []MeterDbMeasurement) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO measurements (timestamp, source, measurement_type, value) " +
			"VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range measurements {
		if _, err := stmt.Exec(m.Timestamp, m.Source, m.MeasurementType, m.Value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetMeasurements returns the raw measurements in [from, to) ordered by time.
func GetMeasurements(db *sql.DB, from, to int64) ([]MeterDbMeasurement, error) {
	rows, err := db.Query(
		"SELECT timestamp, source, measurement_type, value FROM measurements "+
			"WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp, id",
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MeterDbMeasurement
	for rows.Next() {
		var m MeterDbMeasurement
		if err := rows.Scan(&m.Timestamp, &m.Source, &m.MeasurementType, &m.Value); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetHourlyAggregates returns the aggregates of the hours starting in [from, to).
func GetHourlyAggregates(db *sql.DB, from, to int64) ([]MeterDbHourlyAggregate, error) {
	rows, err := db.Query(
		"SELECT hour_start, source, measurement_type, avg_value, min_value, max_value, sample_count "+
			"FROM measurements_hourly WHERE hour_start >= ? AND hour_start < ? "+
			"ORDER BY hour_start, source, measurement_type",
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MeterDbHourlyAggregate
	for rows.Next() {
		var a MeterDbHourlyAggregate
		if err := rows.Scan(&a.HourStart, &a.Source, &a.MeasurementType, &a.AvgValue, &a.MinValue, &a.MaxValue, &a.SampleCount); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
