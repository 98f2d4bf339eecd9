package datalogger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/gas_datalogger/internal/clock"
	"github.com/relabs-tech/gas_datalogger/internal/reading"
	"github.com/relabs-tech/gas_datalogger/internal/status"
	"github.com/relabs-tech/gas_datalogger/internal/storage"
)

const (
	testSeed     = "0123456789abcdef"
	testDeviceID = "A1B2C3D4E5F6"
)

var testWall = time.Date(2022, time.June, 2, 7, 5, 9, 0, time.UTC)

func testClock() *clock.Fixed {
	return &clock.Fixed{Boot: 1500 * time.Millisecond, Wall: testWall, ID: testDeviceID, Step: time.Second}
}

func newTestWriter(t *testing.T, store storage.Storage, opts Options) *Writer {
	t.Helper()
	w := NewWriter(store, testClock(), testSeed, opts)
	if err := w.Initialize(""); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return w
}

func sample(i int) reading.Reading {
	return reading.Reading{
		Index:         reading.Ptr(uint8(i % 8)),
		SensorID:      reading.Ptr(uint32(0xC0FFEE)),
		Mode:          reading.Ptr(reading.Parallel),
		Uptime:        time.Duration(1000+i) * time.Millisecond,
		Unix:          testWall.Unix() + int64(i),
		Temperature:   reading.Ptr(21.5 + float64(i)),
		Pressure:      reading.Ptr(101325.0),
		Humidity:      reading.Ptr(45.25),
		GasResistance: reading.Ptr(123456.0),
		HeaterStep:    reading.Ptr(uint8(i % 10)),
		Label:         reading.Label(i % 3),
	}
}

func readDoc(t *testing.T, store storage.Storage, name string) []byte {
	t.Helper()
	f, err := store.OpenRead(name)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()
	doc, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return doc
}

func recoverDoc(t *testing.T, store storage.Storage, name string) Recovery {
	t.Helper()
	rec, err := ReadRecords(bytes.NewReader(readDoc(t, store, name)))
	if err != nil {
		t.Fatalf("read records of %s: %v", name, err)
	}
	return rec
}

func verifyValidDoc(t *testing.T, store storage.Storage, name string) {
	t.Helper()
	if doc := readDoc(t, store, name); !json.Valid(doc) {
		t.Fatalf("Expected %s to be valid JSON:\n%s", name, doc)
	}
}

func verifyRows(t *testing.T, rec Recovery, want ...reading.Reading) {
	t.Helper()
	if len(rec.Rows) != len(want) {
		t.Fatalf("Expected %d rows but got %d", len(want), len(rec.Rows))
	}
	for i, r := range want {
		if got, exp := rec.Rows[i].UptimeMs, r.Uptime.Milliseconds(); got != exp {
			t.Errorf("row %d: expected uptime %d but got %d", i, exp, got)
		}
		if got := rec.Rows[i].Unix; got != r.Unix {
			t.Errorf("row %d: expected unix %d but got %d", i, r.Unix, got)
		}
		if got := rec.Rows[i].Label; got != int64(r.Label) {
			t.Errorf("row %d: expected label %d but got %d", i, r.Label, got)
		}
	}
}

func TestFlushRoundTrip(t *testing.T) {
	tests := map[string]struct {
		batches []int
	}{
		"single record":      {batches: []int{1}},
		"one batch":          {batches: []int{5}},
		"several flushes":    {batches: []int{1, 3, 2}},
		"many small flushes": {batches: []int{1, 1, 1, 1, 1, 1}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			card := storage.NewMemCard()
			w := newTestWriter(t, card, DefaultOptions)

			var want []reading.Reading
			for _, n := range test.batches {
				for j := 0; j < n; j++ {
					r := sample(len(want))
					want = append(want, r)
					if err := w.AppendRecord(r); err != nil {
						t.Fatal(err)
					}
				}
				if err := w.Flush(); err != nil {
					t.Fatalf("flush: %v", err)
				}
				if w.Buffered() != 0 {
					t.Fatalf("Expected empty buffer after flush but got %d bytes", w.Buffered())
				}
			}

			primary, shadow := w.Files()
			verifyValidDoc(t, card, primary)
			verifyValidDoc(t, card, shadow)

			pb := dataBlock(readDoc(t, card, primary))
			sb := dataBlock(readDoc(t, card, shadow))
			if !bytes.Equal(pb, sb) {
				t.Fatalf("Expected identical data blocks:\nprimary %q\nshadow  %q", pb, sb)
			}

			rec := recoverDoc(t, card, shadow)
			if !rec.Complete || rec.Skipped != 0 {
				t.Fatalf("Expected a complete clean block but got %+v", rec)
			}
			verifyRows(t, rec, want...)
		})
	}
}

func TestFileNames(t *testing.T) {
	card := storage.NewMemCard()
	w := newTestWriter(t, card, DefaultOptions)

	primary, shadow := w.Files()
	base := "/2022_06_02_07_05_Board_" + testDeviceID + "_PowerOnOff_1_" + testSeed
	if want := base + "_File_0.bmerawdata"; primary != want {
		t.Errorf("Expected primary %q but got %q", want, primary)
	}
	if want := base + "_File_1.bmerawdata"; shadow != want {
		t.Errorf("Expected shadow %q but got %q", want, shadow)
	}
	if w.FileCounter() != 2 {
		t.Errorf("Expected file counter 2 but got %d", w.FileCounter())
	}
	verifyValidDoc(t, card, primary)
	verifyValidDoc(t, card, shadow)
}

func TestRolloverThreshold(t *testing.T) {
	r := sample(0)
	size := int64(len(FormatRecord(r, DefaultOptions.Precision)))

	// The shadow data start is the same for every configuration below.
	probe := newTestWriter(t, storage.NewMemCard(), DefaultOptions)
	start := probe.Cursor()

	tests := map[string]struct {
		limit       int64
		wantCounter int
	}{
		"cursor reaches limit": {limit: start + size, wantCounter: 4},
		"cursor below limit":   {limit: start + size + 1, wantCounter: 2},
		"limit inside header":  {limit: 1, wantCounter: 4},
		"far away":             {limit: DefaultOptions.FileSizeLimit, wantCounter: 2},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			opts := DefaultOptions
			opts.FileSizeLimit = test.limit
			card := storage.NewMemCard()
			w := newTestWriter(t, card, opts)

			if err := w.AppendRecord(r); err != nil {
				t.Fatal(err)
			}
			if err := w.Flush(); err != nil {
				t.Fatalf("flush: %v", err)
			}
			if got := w.FileCounter(); got != test.wantCounter {
				t.Fatalf("Expected file counter %d but got %d", test.wantCounter, got)
			}
			if test.wantCounter == 4 && w.Cursor() != start {
				t.Errorf("Expected cursor back at data start %d but got %d", start, w.Cursor())
			}
		})
	}
}

func TestRolloverSwitchesPair(t *testing.T) {
	opts := DefaultOptions
	opts.FileSizeLimit = 1
	card := storage.NewMemCard()
	w := newTestWriter(t, card, opts)
	oldPrimary, oldShadow := w.Files()

	first := sample(1)
	w.AppendRecord(first)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	newPrimary, newShadow := w.Files()
	if newPrimary == oldPrimary || newShadow == oldShadow {
		t.Fatalf("Expected a new pair after rollover, still on %s", newShadow)
	}
	if !strings.HasSuffix(newPrimary, "_File_2.bmerawdata") || !strings.HasSuffix(newShadow, "_File_3.bmerawdata") {
		t.Fatalf("Expected files 2 and 3 but got %s and %s", newPrimary, newShadow)
	}

	second := sample(2)
	w.AppendRecord(second)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	verifyRows(t, recoverDoc(t, card, oldPrimary), first)
	verifyRows(t, recoverDoc(t, card, oldShadow), first)
	verifyRows(t, recoverDoc(t, card, newPrimary), second)
	verifyRows(t, recoverDoc(t, card, newShadow), second)
	for _, name := range []string{oldPrimary, oldShadow, newPrimary, newShadow} {
		verifyValidDoc(t, card, name)
	}
	if w.FileCounter() != 6 {
		t.Errorf("Expected file counter 6 but got %d", w.FileCounter())
	}
}

func TestFlushEmptyBufferIsNoop(t *testing.T) {
	faulty := &storage.Faulty{Storage: storage.NewMemCard()}
	w := newTestWriter(t, faulty, DefaultOptions)
	cursor := w.Cursor()

	for i := 0; i < 3; i++ {
		if err := w.Flush(); err != nil {
			t.Fatalf("flush %d: %v", i, err)
		}
	}
	if faulty.Writes != 0 {
		t.Errorf("Expected no storage writes but got %d", faulty.Writes)
	}
	if w.Cursor() != cursor {
		t.Errorf("Expected cursor %d but got %d", cursor, w.Cursor())
	}
}

func TestFlushBeforeInitialize(t *testing.T) {
	w := NewWriter(storage.NewMemCard(), testClock(), testSeed, DefaultOptions)
	w.AppendRecord(sample(0))

	err := w.Flush()
	if !errors.Is(err, status.LogFileError) {
		t.Fatalf("Expected LogFileError but got %v", err)
	}
	if w.Buffered() != 0 {
		t.Fatalf("Expected the buffer to be cleared but %d bytes remain", w.Buffered())
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Expected second flush to be a no-op but got %v", err)
	}
}

func TestPrimaryFailureKeepsLogging(t *testing.T) {
	faulty := &storage.Faulty{
		Storage:  storage.NewMemCard(),
		FailOpen: map[string]bool{"_File_0.": true},
	}
	w := newTestWriter(t, faulty, DefaultOptions)
	before := w.Cursor()

	r := sample(4)
	w.AppendRecord(r)
	if err := w.Flush(); err != nil {
		t.Fatalf("Expected primary failure to be tolerated but got %v", err)
	}
	if w.Cursor() <= before {
		t.Fatalf("Expected cursor to advance past %d but got %d", before, w.Cursor())
	}

	primary, shadow := w.Files()
	verifyRows(t, recoverDoc(t, faulty, shadow), r)
	verifyRows(t, recoverDoc(t, faulty, primary))
}

func TestShadowFailureDropsBatch(t *testing.T) {
	faulty := &storage.Faulty{
		Storage:  storage.NewMemCard(),
		FailOpen: map[string]bool{"_File_1.": true},
	}
	w := newTestWriter(t, faulty, DefaultOptions)
	before := w.Cursor()

	w.AppendRecord(sample(1))
	err := w.Flush()
	if !errors.Is(err, status.LogFileError) {
		t.Fatalf("Expected LogFileError but got %v", err)
	}
	if w.Cursor() != before {
		t.Fatalf("Expected cursor to stay at %d but got %d", before, w.Cursor())
	}
	if w.Buffered() != 0 {
		t.Fatalf("Expected the batch to be dropped but %d bytes remain", w.Buffered())
	}

	// Once the card recovers the next batch starts a clean block.
	faulty.FailOpen = nil
	r := sample(2)
	w.AppendRecord(r)
	if err := w.Flush(); err != nil {
		t.Fatalf("flush after recovery: %v", err)
	}
	_, shadow := w.Files()
	verifyValidDoc(t, faulty, shadow)
	verifyRows(t, recoverDoc(t, faulty, shadow), r)
}

func TestPrimaryHoleIsRecoverable(t *testing.T) {
	faulty := &storage.Faulty{
		Storage:  storage.NewMemCard(),
		FailOpen: map[string]bool{"_File_0.": true},
	}
	w := newTestWriter(t, faulty, DefaultOptions)

	w.AppendRecord(sample(1))
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	faulty.FailOpen = nil
	second := sample(2)
	w.AppendRecord(second)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	primary, _ := w.Files()
	rec := recoverDoc(t, faulty, primary)
	if rec.Skipped == 0 {
		t.Errorf("Expected the zero-filled hole to be skipped")
	}
	if !rec.Complete {
		t.Errorf("Expected the block to be closed")
	}
	verifyRows(t, rec, second)
}

func TestInitializeErrors(t *testing.T) {
	tests := map[string]struct {
		faulty     *storage.Faulty
		configPath string
		want       status.Code
	}{
		"missing config": {
			faulty:     &storage.Faulty{Storage: storage.NewMemCard()},
			configPath: "/board.bmeconfig",
			want:       status.ConfigFileError,
		},
		"primary not creatable": {
			faulty: &storage.Faulty{Storage: storage.NewMemCard(), FailCreate: map[string]bool{"_File_0.": true}},
			want:   status.LogFileError,
		},
		"shadow not creatable": {
			faulty: &storage.Faulty{Storage: storage.NewMemCard(), FailCreate: map[string]bool{"_File_1.": true}},
			want:   status.LogFileError,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			w := NewWriter(test.faulty, testClock(), testSeed, DefaultOptions)
			err := w.Initialize(test.configPath)
			if !errors.Is(err, test.want) {
				t.Fatalf("Expected %v but got %v", test.want, err)
			}
			if _, shadow := w.Files(); shadow != "" {
				t.Errorf("Expected no active pair but got %s", shadow)
			}
			w.AppendRecord(sample(0))
			if err := w.Flush(); !errors.Is(err, status.LogFileError) {
				t.Errorf("Expected flush to fail with LogFileError but got %v", err)
			}
		})
	}
}

func TestFailedRolloverKeepsPair(t *testing.T) {
	opts := DefaultOptions
	opts.FileSizeLimit = 1
	faulty := &storage.Faulty{
		Storage:    storage.NewMemCard(),
		FailCreate: map[string]bool{"_File_3.": true},
	}
	w := newTestWriter(t, faulty, opts)
	primary, shadow := w.Files()

	first := sample(1)
	w.AppendRecord(first)
	if err := w.Flush(); !errors.Is(err, status.LogFileError) {
		t.Fatalf("Expected LogFileError from rollover but got %v", err)
	}
	if p, s := w.Files(); p != primary || s != shadow {
		t.Fatalf("Expected to stay on %s but switched to %s", shadow, s)
	}

	faulty.FailCreate = nil
	second := sample(2)
	w.AppendRecord(second)
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	verifyValidDoc(t, faulty, shadow)
	verifyRows(t, recoverDoc(t, faulty, shadow), first, second)
	if _, s := w.Files(); s == shadow {
		t.Errorf("Expected the retried rollover to switch pair")
	}
}

func TestFailedReinitializeKeepsPair(t *testing.T) {
	const configName = "/board.bmeconfig"

	tests := map[string]struct {
		fail func(f *storage.Faulty)
		want status.Code
	}{
		"config gone": {
			fail: func(f *storage.Faulty) { f.FailRead = map[string]bool{configName: true} },
			want: status.ConfigFileError,
		},
		"new pair not creatable": {
			fail: func(f *storage.Faulty) { f.FailCreate = map[string]bool{"_File_2.": true} },
			want: status.LogFileError,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			faulty := &storage.Faulty{Storage: storage.NewMemCard()}
			writeConfig(t, faulty, configName, "{\n    \"configHeader\": {\"boardType\": \"bme688\"}\n}\n")
			w := NewWriter(faulty, testClock(), testSeed, DefaultOptions)
			if err := w.Initialize(configName); err != nil {
				t.Fatalf("initialize: %v", err)
			}

			first := sample(1)
			w.AppendRecord(first)
			if err := w.Flush(); err != nil {
				t.Fatal(err)
			}
			primary, shadow := w.Files()
			cursor := w.Cursor()

			test.fail(faulty)
			if err := w.Initialize(configName); !errors.Is(err, test.want) {
				t.Fatalf("Expected %v but got %v", test.want, err)
			}
			if p, s := w.Files(); p != primary || s != shadow {
				t.Fatalf("Expected to stay on %s but got %s", shadow, s)
			}
			if w.Cursor() != cursor {
				t.Fatalf("Expected cursor %d but got %d", cursor, w.Cursor())
			}

			second := sample(2)
			w.AppendRecord(second)
			if err := w.Flush(); err != nil {
				t.Fatalf("flush: %v", err)
			}
			for _, name := range []string{primary, shadow} {
				verifyValidDoc(t, faulty, name)
				verifyRows(t, recoverDoc(t, faulty, name), first, second)
			}
		})
	}
}

func TestPrimaryWithLongerHeader(t *testing.T) {
	opts := DefaultOptions
	opts.FileSizeLimit = 1
	faulty := &storage.Faulty{
		Storage:    storage.NewMemCard(),
		FailCreate: map[string]bool{"_File_1.": true},
	}
	w := NewWriter(faulty, testClock(), testSeed, opts)
	if err := w.Initialize(""); !errors.Is(err, status.LogFileError) {
		t.Fatalf("Expected LogFileError but got %v", err)
	}
	faulty.FailCreate = nil
	if err := w.Initialize(""); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Every flush rolls over; walk the pairs until they straddle 9 and 10.
	for i := 0; i < 8; i++ {
		if p, _ := w.Files(); strings.HasSuffix(p, "_File_9.bmerawdata") {
			break
		}
		w.AppendRecord(sample(i))
		if err := w.Flush(); err != nil {
			t.Fatalf("flush %d: %v", i, err)
		}
	}
	primary, shadow := w.Files()
	if !strings.HasSuffix(primary, "_File_9.bmerawdata") || !strings.HasSuffix(shadow, "_File_10.bmerawdata") {
		t.Fatalf("Expected files 9 and 10 but got %s and %s", primary, shadow)
	}

	a, b := sample(20), sample(21)
	w.AppendRecord(a)
	w.AppendRecord(b)
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	pdoc, sdoc := readDoc(t, faulty, primary), readDoc(t, faulty, shadow)
	if len(pdoc) == len(sdoc) {
		t.Fatalf("Expected headers of different length")
	}
	if pb, sb := dataBlock(pdoc), dataBlock(sdoc); !bytes.Equal(pb, sb) {
		t.Fatalf("Expected identical data blocks:\nprimary %q\nshadow  %q", pb, sb)
	}
	for _, name := range []string{primary, shadow} {
		verifyValidDoc(t, faulty, name)
		verifyRows(t, recoverDoc(t, faulty, name), a, b)
	}
}
