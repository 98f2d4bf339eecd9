package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/relabs-tech/gas_datalogger/internal/app"
	"github.com/relabs-tech/gas_datalogger/internal/storage"
)

func main() {
	root := flag.String("root", ".", "Directory holding the log files (card mount point)")
	name := flag.String("file", "", "Log file to dump; the latest one when empty")
	ext := flag.String("ext", ".bmerawdata", "Log file extension")
	flag.Parse()

	card, err := storage.NewCard(*root)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	file := *name
	if file == "" {
		if file, err = app.LatestLogFile(card, *ext); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	} else if file[0] != '/' {
		file = "/" + file
	}

	out := bufio.NewWriter(os.Stdout)
	rec, err := app.RunLogDump(card, file, out)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := out.Flush(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if !rec.Complete {
		fmt.Fprintf(os.Stderr, "%s: data block not closed, last records may be missing\n", file)
	}
}
