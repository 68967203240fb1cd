package billing

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/dmitrymomot/hostelkit/pkg/sanitizer"
	"github.com/dmitrymomot/hostelkit/svc/inventory"
)

// Bed labels in one CSV cell are separated by any of these.
const labelSeparators = ";|"

var csvColumns = map[string]string{
	"floor":       "floor",
	"room_number": "room_number",
	"roomnumber":  "room_number",
	"room":        "room_number",
	"bed_count":   "bed_count",
	"bedcount":    "bed_count",
	"beds":        "bed_count",
	"bed_labels":  "bed_labels",
	"bedlabels":   "bed_labels",
}

// ReadRoomsCSV parses a room upload. The header row names the columns
// floor, room_number and bed_count, plus the optional bed_labels. Empty
// lines are ignored. Values that cannot be parsed fail the whole file with
// the line number; semantic checks are left to the quota gate.
func ReadRoomsCSV(r io.Reader) ([]inventory.RoomInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrInvalidCSV.Withf("file is empty")
	}
	if err != nil {
		return nil, ErrInvalidCSV.Wrap(err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if col, ok := csvColumns[key]; ok {
			index[col] = i
		}
	}
	for _, col := range []string{"floor", "room_number", "bed_count"} {
		if _, ok := index[col]; !ok {
			return nil, ErrInvalidCSV.Withf("missing column %q", col)
		}
	}

	var rows []inventory.RoomInput
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, ErrInvalidCSV.Wrap(err)
		}
		line, _ := cr.FieldPos(0)

		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		floor, err := strconv.Atoi(cell("floor"))
		if err != nil {
			return nil, ErrInvalidCSV.Withf("line %d: floor must be a whole number", line)
		}
		beds, err := strconv.Atoi(cell("bed_count"))
		if err != nil {
			return nil, ErrInvalidCSV.Withf("line %d: bed_count must be a whole number", line)
		}

		var labels []string
		if raw := cell("bed_labels"); raw != "" {
			labels = sanitizer.SplitAny(raw, labelSeparators)
		}

		rows = append(rows, inventory.RoomInput{
			Floor:      floor,
			RoomNumber: cell("room_number"),
			BedCount:   beds,
			BedLabels:  labels,
		})
	}
}
