package onion

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	Oc "github.com/GMPavanLab/timeseries-analysis/cluster"
)

// LoadMatrixFile reads a prepared signal matrix from a plain text file:
// one row per entity, whitespace-separated scalar observations.
// Lines starting with '#' are skipped. Every row must have the same
// number of frames.
func LoadMatrixFile(path string) ([][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var m [][]float64
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			row[i] = v
		}
		if len(m) > 0 && len(row) != len(m[0]) {
			return nil, fmt.Errorf("line %d: got %d frames, want %d", lineNo, len(row), len(m[0]))
		}
		m = append(m, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, errors.New("no data rows in matrix file")
	}

	slog.Info("Signal matrix loaded",
		slog.String("File", path),
		slog.Int("Entities", len(m)),
		slog.Int("Frames", len(m[0])))

	return m, nil
}

// PrepareData smooths every entity's series with a moving average of
// width tSmooth and returns the processed matrix along with its global
// signal range. The raw matrix is left untouched.
func PrepareData(raw [][]float64, tSmooth int) ([][]float64, [2]float64, error) {
	var srange [2]float64
	if len(raw) == 0 {
		return nil, srange, errors.New("empty signal matrix")
	}
	if tSmooth < 1 || tSmooth > len(raw[0]) {
		return nil, srange, fmt.Errorf("t_smooth %d does not fit %d frames", tSmooth, len(raw[0]))
	}

	clean := Oc.MovingAverageRows(raw, tSmooth)
	lo, hi := Oc.MatrixRange(clean)
	srange[0], srange[1] = lo, hi
	return clean, srange, nil
}
