package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"learningassistant"
)

func main() {
	cfg, err := learningassistant.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var (
		dir     = flag.String("dir", cfg.BankDir, "Directory of JSON bank files")
		name    = flag.String("name", "", "Bank name (default: directory or file name)")
		driver  = flag.String("driver", string(cfg.DBDriver), "Database driver (sqlite3, sqlite, pgx)")
		dsn     = flag.String("dsn", cfg.DBDSN, "Database DSN")
		dryRun  = flag.Bool("dry-run", false, "Validate only, do not store")
		list    = flag.Bool("list", false, "List stored banks and exit")
		verbose = flag.Bool("verbose", cfg.Verbose, "Enable verbose debugging output")
	)
	flag.Parse()

	learningassistant.SetVerbose(*verbose)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *list {
		db, err := learningassistant.OpenBankDB(ctx, learningassistant.Driver(*driver), *dsn)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		banks, err := db.ListBanks(ctx)
		if err != nil {
			log.Fatalf("Failed to list banks: %v", err)
		}
		output, err := json.MarshalIndent(banks, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal banks: %v", err)
		}
		fmt.Println(string(output))
		return
	}

	questions, rejected, source, err := readSources(*dir, flag.Args())
	if err != nil {
		log.Fatalf("Failed to read bank: %v", err)
	}
	for _, re := range rejected {
		fmt.Fprintf(os.Stderr, "rejected: %v\n", re)
	}
	log.Printf("%d questions valid, %d rejected", len(questions), len(rejected))

	if *dryRun || len(questions) == 0 {
		if len(rejected) > 0 {
			os.Exit(1)
		}
		return
	}

	if *name == "" {
		*name = source
	}

	db, err := learningassistant.OpenBankDB(ctx, learningassistant.Driver(*driver), *dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	bank, err := db.CreateBank(ctx, *name, questions)
	if err != nil {
		log.Fatalf("Failed to store bank: %v", err)
	}
	fmt.Printf("Stored bank %s (%s) with %d questions\n", bank.ID, bank.Name, bank.QuestionCount)
}

// readSources loads the files given as arguments, or every file in dir.
func readSources(dir string, files []string) ([]learningassistant.Question, []*learningassistant.RecordError, string, error) {
	if len(files) == 0 {
		if dir == "" {
			return nil, nil, "", fmt.Errorf("no bank files given; use -dir or pass files")
		}
		questions, rejected, err := learningassistant.ReadBankDir(dir)
		return questions, rejected, filepath.Base(dir), err
	}

	var (
		questions []learningassistant.Question
		rejected  []*learningassistant.RecordError
	)
	for _, f := range files {
		qs, rej, err := learningassistant.ReadBankFile(f)
		if err != nil {
			return nil, nil, "", err
		}
		questions = append(questions, qs...)
		rejected = append(rejected, rej...)
	}
	return questions, rejected, filepath.Base(files[0]), nil
}
