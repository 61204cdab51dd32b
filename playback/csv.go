package playback

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ReadCSV parses a via-point table. The first record is a header and is
// skipped. Records with fewer than two fields carry no joint data and are
// ignored.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(rec) < 2 {
			continue
		}

		line, _ := cr.FieldPos(0)
		duration, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid duration %q: %w", line, rec[0], err)
		}

		angles := make([]float64, len(rec)-1)
		for i, f := range rec[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid angle %q in column %d: %w", line, f, i+2, err)
			}
			angles[i] = v
		}
		rows = append(rows, Row{DurationS: duration, AnglesDeg: angles})
	}
	return rows, nil
}

// WriteCSV writes a header of "duration" followed by jointNames, then one
// record per row with angles rounded to three decimals. When jointNames is
// shorter than a row, missing columns are named joint<N>.
func WriteCSV(w io.Writer, jointNames []string, rows []Row) error {
	width := len(jointNames)
	for _, row := range rows {
		width = max(width, len(row.AnglesDeg))
	}

	header := make([]string, 0, width+1)
	header = append(header, "duration")
	for i := 0; i < width; i++ {
		if i < len(jointNames) {
			header = append(header, jointNames[i])
		} else {
			header = append(header, "joint"+strconv.Itoa(i+1))
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rec := make([]string, 0, width+1)
	for _, row := range rows {
		rec = rec[:0]
		rec = append(rec, strconv.FormatFloat(row.DurationS, 'f', -1, 64))
		for _, a := range row.AnglesDeg {
			rec = append(rec, strconv.FormatFloat(a, 'f', 3, 64))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
