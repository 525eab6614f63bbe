package aggregator

import (
	"database/sql"
	"fmt"
	"time"
)

// RawRetention is how long raw measurements are kept once aggregated.
const RawRetention = 90 * 24 * time.Hour

// roundToHourStart returns the Unix timestamp of the start of the hour for the given time
func roundToHourStart(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC).Unix()
}

// lastAggregatedHour returns the start of the newest aggregated hour, or -1.
func lastAggregatedHour(db *sql.DB) (int64, error) {
	var last sql.NullInt64
	if err := db.QueryRow("SELECT MAX(hour_start) FROM measurements_hourly").Scan(&last); err != nil {
		return 0, err
	}
	if !last.Valid {
		return -1, nil
	}
	return last.Int64, nil
}

// aggregateHours folds the raw measurements of every hour in [from, to) into
// measurements_hourly.
func aggregateHours(db *sql.DB, from, to int64) (int64, error) {
	query := `
		INSERT OR REPLACE INTO measurements_hourly
		(hour_start, source, measurement_type, avg_value, min_value, max_value, sample_count)
		SELECT
			(timestamp / 3600) * 3600 AS hour_start,
			source,
			measurement_type,
			AVG(value),
			MIN(value),
			MAX(value),
			COUNT(*)
		FROM measurements
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY hour_start, source, measurement_type
	`
	res, err := db.Exec(query, from, to)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// cleanupOldData removes raw data older than the retention if it has been aggregated
func cleanupOldData(db *sql.DB, now time.Time, aggregatedUntil int64) (int64, error) {
	// Whole hours only, a partly deleted hour would be aggregated again with fewer samples.
	cutoff := roundToHourStart(now.Add(-RawRetention))

	// Only clean up what is already aggregated
	if aggregatedUntil < cutoff {
		cutoff = aggregatedUntil
	}
	res, err := db.Exec("DELETE FROM measurements WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AggregateHourly aggregates every completed hour not aggregated yet and then
// removes raw measurements past their retention.
// The hour containing now is still ongoing and left alone.
func AggregateHourly(db *sql.DB, now time.Time) (Result, error) {
	currentHour := roundToHourStart(now)

	last, err := lastAggregatedHour(db)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read last aggregated hour: %w", err)
	}
	from := int64(0)
	if last >= 0 {
		// Late measurements of the last aggregated hour are picked up again.
		from = last
	}

	var result Result
	if from < currentHour {
		result.AggregatesWritten, err = aggregateHours(db, from, currentHour)
		if err != nil {
			return result, fmt.Errorf("failed to aggregate hours: %w", err)
		}
	}

	result.RawDeleted, err = cleanupOldData(db, now, currentHour)
	if err != nil {
		return result, fmt.Errorf("failed to clean up old measurements: %w", err)
	}
	return result, nil
}
