package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/relabs-tech/gas_datalogger/internal/datalogger"
	"github.com/relabs-tech/gas_datalogger/internal/storage"
)

// RunLogDump writes every record that can be recovered from the log file name
// as CSV to w, with the column keys as header row.
func RunLogDump(store storage.Storage, name string, w io.Writer) (datalogger.Recovery, error) {
	f, err := store.OpenRead(name)
	if err != nil {
		return datalogger.Recovery{}, err
	}
	defer f.Close()

	rec, err := datalogger.ReadRecords(f)
	if err != nil {
		return rec, fmt.Errorf("%s: %w", name, err)
	}

	out := csv.NewWriter(w)
	header := make([]string, len(datalogger.Columns))
	for i, c := range datalogger.Columns {
		header[i] = c.Key
	}
	if err := out.Write(header); err != nil {
		return rec, err
	}
	for _, row := range rec.Rows {
		if err := out.Write(row.Values()); err != nil {
			return rec, err
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return rec, err
	}

	log.Printf("logdump: %s: %d records, %d damaged lines, complete=%v", name, len(rec.Rows), rec.Skipped, rec.Complete)
	return rec, nil
}

// LatestLogFile returns the most recent log file on the card: the latest
// creation minute, then the highest file counter.
func LatestLogFile(store storage.Storage, ext string) (string, error) {
	names, err := store.List("/")
	if err != nil {
		return "", err
	}
	latest, latestN := "", -1
	for _, n := range names {
		if !strings.HasSuffix(n, ext) {
			continue
		}
		counter := fileCounter(n, ext)
		if latest == "" || datePart(n) > datePart(latest) ||
			(datePart(n) == datePart(latest) && counter > latestN) {
			latest, latestN = n, counter
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no *%s file found", ext)
	}
	return "/" + latest, nil
}

func datePart(name string) string {
	date, _, _ := strings.Cut(name, "_Board_")
	return date
}

func fileCounter(name, ext string) int {
	i := strings.LastIndex(name, "_File_")
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSuffix(name[i+len("_File_"):], ext))
	if err != nil {
		return -1
	}
	return n
}
