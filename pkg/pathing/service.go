package pathing

import (
	"os"
	"path/filepath"
)

// EnsureDir creates dir and its parents if missing.
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func GetMeterDbPath() string {
	// Join path
	return filepath.Join(GetDataDir(), "smartmeter.db")
}

func GetDataDir() string {
	return "/var/lib/smartmeter_datacollector"
}

func GetConfigDir() string {
	return "/etc/smartmeter_datacollector"
}
