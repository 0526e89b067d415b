package db

import (
	"CafeAPI/src/logging"
	"CafeAPI/src/types"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadData imports cafes from a CSV (or .tsv) file whose header names the
// cafe columns. It only runs against an empty table and returns the number
// of rows inserted.
func (s *SQLiteStore) LoadData(ctx context.Context, pathData string) (int, error) {
	count, err := s.CountCafes(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logging.Info().Int64("cafes", count).Msg("Store already populated, skipping seed")
		return 0, nil
	}

	file, err := os.Open(pathData)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	comma := ','
	if strings.EqualFold(filepath.Ext(pathData), ".tsv") {
		comma = '\t'
	}

	cafes, err := readCSV(file, comma)
	if err != nil {
		return 0, fmt.Errorf("read seed file %s: %w", pathData, err)
	}
	if len(cafes) == 0 {
		return 0, nil
	}

	if err = s.DB.WithContext(ctx).CreateInBatches(cafes, 100).Error; err != nil {
		return 0, storeError("seed", err)
	}

	logging.Info().Int("cafes", len(cafes)).Str("file", pathData).Msg("Seed data loaded")
	return len(cafes), nil
}

func readCSV(r io.Reader, comma rune) ([]types.Cafe, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["name"]; !ok {
		return nil, fmt.Errorf("header has no name column")
	}

	cafes := make([]types.Cafe, 0, len(records)-1)
	for line, record := range records[1:] {
		field := func(col string) *string {
			i, ok := columns[col]
			if !ok || i >= len(record) || record[i] == "" {
				return nil
			}
			v := record[i]
			return &v
		}
		flag := func(col string) (*bool, error) {
			v := field(col)
			if v == nil {
				return nil, nil
			}
			b, err := strconv.ParseBool(*v)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", line+2, col, err)
			}
			return &b, nil
		}

		name := field("name")
		if name == nil {
			return nil, fmt.Errorf("line %d: empty name", line+2)
		}
		cafe := types.Cafe{
			Name:        *name,
			MapURL:      field("map_url"),
			ImgURL:      field("img_url"),
			Location:    field("location"),
			Seats:       field("seats"),
			CoffeePrice: field("coffee_price"),
		}
		for col, dst := range map[string]**bool{
			"has_toilet":     &cafe.HasToilet,
			"has_wifi":       &cafe.HasWifi,
			"has_sockets":    &cafe.HasSockets,
			"can_take_calls": &cafe.CanTakeCalls,
		} {
			if *dst, err = flag(col); err != nil {
				return nil, err
			}
		}
		cafes = append(cafes, cafe)
	}
	return cafes, nil
}
