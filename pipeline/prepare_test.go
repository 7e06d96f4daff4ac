package onion_test

import (
	"errors"
	"math"
	"os"
	"testing"

	Op "github.com/GMPavanLab/timeseries-analysis/pipeline"
)

// Temporary OS file to use for testing data loading
func createTempFile(t testing.TB, data string) (*os.File, func()) {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "db")
	if err != nil {
		t.Fatalf("could not create temp file %v", err)
	}

	tmpfile.Write([]byte(data))
	removeFile := func() {
		tmpfile.Close()
		os.Remove(tmpfile.Name())
	}
	return tmpfile, removeFile
}

func TestLoadMatrixFile(t *testing.T) {
	t.Run("Loads a plain whitespace matrix", func(t *testing.T) {
		file, remove := createTempFile(t, "1.0 2.0 3.0\n4.0 5.0 6.0\n")
		defer remove()

		m, err := Op.LoadMatrixFile(file.Name())

		assertError(t, err, nil)
		assertInt(t, len(m), 2)
		assertInt(t, len(m[0]), 3)
		assertFloatNear(t, m[1][2], 6.0, 0)
	})

	t.Run("Skips comments and blank lines", func(t *testing.T) {
		file, remove := createTempFile(t, "# header\n\n1 2\n# middle\n3 4\n")
		defer remove()

		m, err := Op.LoadMatrixFile(file.Name())

		assertError(t, err, nil)
		assertInt(t, len(m), 2)
	})

	t.Run("Errors on ragged rows", func(t *testing.T) {
		file, remove := createTempFile(t, "1 2 3\n4 5\n")
		defer remove()

		_, err := Op.LoadMatrixFile(file.Name())
		assertGotError(t, err)
	})

	t.Run("Errors on non-numeric data", func(t *testing.T) {
		file, remove := createTempFile(t, "1 two 3\n")
		defer remove()

		_, err := Op.LoadMatrixFile(file.Name())
		assertGotError(t, err)
	})

	t.Run("Errors on a file with no data rows", func(t *testing.T) {
		file, remove := createTempFile(t, "# only comments\n")
		defer remove()

		_, err := Op.LoadMatrixFile(file.Name())
		assertGotError(t, err)
	})

	t.Run("Errors when the file does not exist", func(t *testing.T) {
		_, err := Op.LoadMatrixFile("no-such-matrix.txt")
		assertGotError(t, err)
	})
}

func TestPrepareData(t *testing.T) {
	raw := [][]float64{
		{1, 2, 3, 4, 5},
		{5, 4, 3, 2, 1},
	}

	t.Run("Smoothing shrinks every row the same way", func(t *testing.T) {
		clean, _, err := Op.PrepareData(raw, 3)

		assertError(t, err, nil)
		assertInt(t, len(clean[0]), 3)
		assertFloatNear(t, clean[0][0], 2, 1e-12)
		assertFloatNear(t, clean[1][0], 4, 1e-12)
	})

	t.Run("Reports the global range of the smoothed signal", func(t *testing.T) {
		_, srange, err := Op.PrepareData(raw, 3)

		assertError(t, err, nil)
		assertFloatNear(t, srange[0], 2, 1e-12)
		assertFloatNear(t, srange[1], 4, 1e-12)
	})

	t.Run("Leaves the raw matrix untouched", func(t *testing.T) {
		_, _, err := Op.PrepareData(raw, 3)

		assertError(t, err, nil)
		assertFloatNear(t, raw[0][0], 1, 0)
		assertInt(t, len(raw[0]), 5)
	})

	t.Run("Errors when smoothing exceeds the frames", func(t *testing.T) {
		_, _, err := Op.PrepareData(raw, 7)
		assertGotError(t, err)
	})

	t.Run("Errors on an empty matrix", func(t *testing.T) {
		_, _, err := Op.PrepareData(nil, 1)
		assertGotError(t, err)
	})
}

func assertError(t testing.TB, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Errorf("got error %q want %q", got, want)
	}
}

func assertGotError(t testing.TB, got error) {
	t.Helper()
	if got == nil {
		t.Errorf("Expected an error but got %q", got)
	}
}

func assertInt(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %d, want %d", got, want)
	}
}

func assertFloatNear(t testing.TB, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		t.Errorf("got %v, want %v (tolerance %v)", got, want, tol)
	}
}
