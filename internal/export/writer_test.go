package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wegman-software/osmpoi/internal/poi"
	"github.com/wegman-software/osmpoi/internal/stats"
	"github.com/wegman-software/osmpoi/internal/tags"
)

func sampleRecords() []*poi.Record {
	entities := []poi.Entity{
		{
			Ref:      poi.Ref{Kind: poi.KindNode, ID: 1},
			Tags:     tags.Tags{"amenity": "restaurant", "name": "Som Tam Nua", "name:th": "ส้มตำนัว", "cuisine": "thai;isaan", "capacity": "40"},
			Location: &poi.Coordinate{Lat: 13.7465, Lon: 100.5308},
		},
		{
			Ref:  poi.Ref{Kind: poi.KindWay, ID: 2},
			Tags: tags.Tags{"amenity": "restaurant", "name": "Fish & Chips \"Co\"", "capacity": "abc"},
		},
		{
			Ref:      poi.Ref{Kind: poi.KindNode, ID: 3},
			Tags:     tags.Tags{"railway": "station", "network": "BTS", "name:en": "Siam", "platforms": "2"},
			Location: &poi.Coordinate{Lat: 13.7456, Lon: 100.5341},
		},
		{
			Ref:  poi.Ref{Kind: poi.KindRelation, ID: 4},
			Tags: tags.Tags{"highway": "bus_stop", "route_ref": "8;27", "shelter": "limited"},
		},
		{
			Ref:  poi.Ref{Kind: poi.KindNode, ID: 5},
			Tags: tags.Tags{"amenity": "restaurant", "name": "caf\xe9"},
		},
	}
	var out []*poi.Record
	for i := range entities {
		st, _ := poi.Classify(entities[i].Tags)
		out = append(out, poi.Extract(&entities[i], st))
	}
	return out
}

func summarize(records []*poi.Record) stats.Summary {
	a := stats.New(stats.DefaultTracked)
	for _, r := range records {
		a.Observe(r)
	}
	return a.Finalize(10)
}

func readCSV(t *testing.T, path string) []map[string]string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	var out []map[string]string
	for _, row := range rows[1:] {
		m := make(map[string]string, len(row))
		for i, cell := range row {
			m[rows[0][i]] = cell
		}
		out = append(out, m)
	}
	return out
}

func readJSON(t *testing.T, path string) []map[string]any {
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out []map[string]any
	require.NoError(t, dec.Decode(&out))
	return out
}

func TestWriteArtifacts(t *testing.T) {
	records := sampleRecords()
	base := filepath.Join(t.TempDir(), "out", "bangkok_poi")

	w := NewWriter(Options{})
	arts, err := w.Write(context.Background(), records, summarize(records), base)
	require.NoError(t, err)
	assert.Equal(t, base+".csv", arts.CSV)
	assert.Equal(t, base+".json", arts.JSON)
	assert.Empty(t, arts.Parquet)

	rows := readCSV(t, arts.CSV)
	entries := readJSON(t, arts.JSON)
	require.Len(t, rows, len(records))
	require.Len(t, entries, len(records))

	// arrival order is kept
	for i, want := range []string{"1", "2", "3", "4", "5"} {
		assert.Equal(t, want, rows[i]["osm_id"])
		assert.Equal(t, json.Number(want), entries[i]["osm_id"])
	}

	// way: geometry cells empty, keys omitted
	assert.Equal(t, "", rows[1]["latitude"])
	assert.Equal(t, "", rows[1]["longitude"])
	assert.NotContains(t, entries[1], "latitude")
	assert.NotContains(t, entries[1], "longitude")
	assert.NotContains(t, entries[1], "capacity")

	// fields of other subtypes never appear in an entry
	assert.NotContains(t, entries[0], "route_ref")
	assert.NotContains(t, entries[3], "cuisine")
	assert.Equal(t, "Bus", entries[3]["transit_type"])
	assert.Equal(t, "BTS Skytrain", entries[2]["transit_type"])

	data, err := os.ReadFile(arts.JSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ส้มตำนัว")
	assert.Contains(t, string(data), "Fish & Chips")

	// invalid UTF-8 reads back identically from both formats
	assert.Equal(t, "caf\uFFFD", rows[4]["name"])
	assert.Equal(t, "caf\uFFFD", entries[4]["name"])
}

func TestCrossFormatParity(t *testing.T) {
	records := sampleRecords()
	base := filepath.Join(t.TempDir(), "parity")

	arts, err := NewWriter(Options{}).Write(context.Background(), records, summarize(records), base)
	require.NoError(t, err)

	rows := readCSV(t, arts.CSV)
	entries := readJSON(t, arts.JSON)
	for i, entry := range entries {
		for key, v := range entry {
			var text string
			switch tv := v.(type) {
			case string:
				text = tv
			case json.Number:
				text = tv.String()
			default:
				t.Fatalf("unexpected JSON value %T for %s", v, key)
			}
			assert.Equal(t, text, rows[i][key], "record %d field %s", i, key)
		}
		for key, cell := range rows[i] {
			if cell != "" {
				assert.Contains(t, entry, key, "record %d field %s", i, key)
			}
		}
	}
}

func TestWriteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	records := sampleRecords()
	w := NewWriter(Options{})

	a1, err := w.Write(context.Background(), records, summarize(records), filepath.Join(dir, "a"))
	require.NoError(t, err)
	a2, err := w.Write(context.Background(), sampleRecords(), summarize(records), filepath.Join(dir, "b"))
	require.NoError(t, err)

	for _, pair := range [][2]string{{a1.CSV, a2.CSV}, {a1.JSON, a2.JSON}} {
		b1, err := os.ReadFile(pair[0])
		require.NoError(t, err)
		b2, err := os.ReadFile(pair[1])
		require.NoError(t, err)
		assert.Equal(t, b1, b2)
	}
}

func TestWriteColumnsFollowEnabledSubtypes(t *testing.T) {
	w := NewWriter(Options{Subtypes: poi.NewSubtypeSet(poi.SubtypeRestaurant)})
	base := filepath.Join(t.TempDir(), "food")

	arts, err := w.Write(context.Background(), nil, stats.Summary{}, base)
	require.NoError(t, err)

	f, err := os.Open(arts.CSV)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
	assert.Contains(t, rows[0], "cuisine")
	assert.NotContains(t, rows[0], "route_ref")
	assert.NotContains(t, rows[0], "transit_type")

	data, err := os.ReadFile(arts.JSON)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestWriteFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "poi")

	// a non-empty directory where the JSON artifact should go blocks the rename
	require.NoError(t, os.MkdirAll(filepath.Join(base+".json", "keep"), 0755))

	records := sampleRecords()
	_, err := NewWriter(Options{}).Write(context.Background(), records, summarize(records), base)
	require.Error(t, err)

	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, base+".json", werr.Path)

	_, statErr := os.Stat(base + ".csv")
	assert.True(t, os.IsNotExist(statErr), "csv must not survive a failed set")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, "poi.json", e.Name(), "unexpected leftover %s", e.Name())
	}
}

func TestWriteSplitArtifacts(t *testing.T) {
	records := sampleRecords()
	base := filepath.Join(t.TempDir(), "bangkok_poi")

	arts, err := NewWriter(Options{Split: true}).Write(context.Background(), records, summarize(records), base)
	require.NoError(t, err)
	assert.Equal(t, []string{
		base + "_restaurants.csv", base + "_restaurants.json",
		base + "_rail_stations.csv", base + "_rail_stations.json",
		base + "_bus_stops.csv", base + "_bus_stops.json",
	}, arts.Split)
	assert.Len(t, arts.Paths(), 8)

	// combined set is unchanged
	require.Len(t, readCSV(t, arts.CSV), len(records))

	food := readCSV(t, base+"_restaurants.csv")
	require.Len(t, food, 3)
	for i, id := range []string{"1", "2", "5"} {
		assert.Equal(t, id, food[i]["osm_id"])
	}
	assert.NotContains(t, food[0], "route_ref")

	rail := readJSON(t, base+"_rail_stations.json")
	require.Len(t, rail, 1)
	assert.Equal(t, "BTS Skytrain", rail[0]["transit_type"])

	bus := readCSV(t, base+"_bus_stops.csv")
	require.Len(t, bus, 1)
	assert.Equal(t, "limited", bus[0]["shelter"])
	assert.NotContains(t, bus[0], "cuisine")
}

func TestWriteSplitFollowsEnabledSubtypes(t *testing.T) {
	base := filepath.Join(t.TempDir(), "transit")
	w := NewWriter(Options{Split: true, Subtypes: poi.NewSubtypeSet(poi.SubtypeBusStop)})

	arts, err := w.Write(context.Background(), nil, stats.Summary{}, base)
	require.NoError(t, err)
	assert.Equal(t, []string{base + "_bus_stops.csv", base + "_bus_stops.json"}, arts.Split)

	data, err := os.ReadFile(base + "_bus_stops.json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
	_, err = os.Stat(base + "_restaurants.csv")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteSplitFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "poi")
	require.NoError(t, os.MkdirAll(filepath.Join(base+"_bus_stops.json", "keep"), 0755))

	records := sampleRecords()
	_, err := NewWriter(Options{Split: true}).Write(context.Background(), records, summarize(records), base)

	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, base+"_bus_stops.json", werr.Path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, "poi_bus_stops.json", e.Name(), "unexpected leftover %s", e.Name())
	}
}

func TestWriteRejectsMismatchedSummary(t *testing.T) {
	records := sampleRecords()
	_, err := NewWriter(Options{}).Write(context.Background(), records, stats.Summary{Total: 1}, filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}

func TestWriteParquet(t *testing.T) {
	records := sampleRecords()
	base := filepath.Join(t.TempDir(), "poi")

	arts, err := NewWriter(Options{Parquet: true, RowGroupSize: 2}).Write(context.Background(), records, summarize(records), base)
	require.NoError(t, err)
	require.Equal(t, base+".parquet", arts.Parquet)
	assert.Len(t, arts.Paths(), 3)

	info, err := os.Stat(arts.Parquet)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	head := make([]byte, 4)
	f, err := os.Open(arts.Parquet)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Read(head)
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(head))
}
