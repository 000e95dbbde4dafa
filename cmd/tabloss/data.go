package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

// readCSVMatrix parses a numeric CSV stream into a dense matrix. Every row
// must have the same number of fields.
func readCSVMatrix(r io.Reader, header bool) (*mat.Dense, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if header && len(records) > 0 {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, errors.ErrEmptyData
	}

	cols := len(records[0])
	data := make([]float64, 0, len(records)*cols)
	for i, rec := range records {
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.NewValueError("readCSVMatrix",
					fmt.Sprintf("row %d column %d: %q is not a number", i+1, j+1, field))
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(len(records), cols, data), nil
}

func readCSVFile(path string, header bool) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	m, err := readCSVMatrix(f, header)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return m, nil
}

// loadData reads the --pred and --target CSV files.
func loadData(cmd *cobra.Command) (pred, target *mat.Dense, err error) {
	predPath, _ := cmd.Flags().GetString("pred")
	targetPath, _ := cmd.Flags().GetString("target")
	header, _ := cmd.Flags().GetBool("header")

	if pred, err = readCSVFile(predPath, header); err != nil {
		return nil, nil, err
	}
	if target, err = readCSVFile(targetPath, header); err != nil {
		return nil, nil, err
	}
	return pred, target, nil
}
