package resource

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// fsUsage returns the size and available space of the filesystem
// hosting path, in bytes.
func fsUsage(path string) (total, avail uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(st.Bsize)
	return st.Blocks * bsize, st.Bavail * bsize, nil
}

// loadAverages returns the 1/5/15 minute system load averages.
func loadAverages() ([3]float64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return [3]float64{}, fmt.Errorf("sysinfo: %w", err)
	}
	// Loads are fixed-point with 16 fractional bits
	const scale = 1 << 16
	return [3]float64{
		float64(info.Loads[0]) / scale,
		float64(info.Loads[1]) / scale,
		float64(info.Loads[2]) / scale,
	}, nil
}

// numProcs returns the number of usable processing units.
func numProcs() int {
	return runtime.NumCPU()
}

// deviceID returns the ID of the device hosting path.
func deviceID(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return uint64(st.Dev), nil
}
