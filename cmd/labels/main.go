package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"labelcam/internal/model"
	"labelcam/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/labels.db", "Database path")
	classes := flag.Bool("classes", false, "Print label counts per detected class instead of every record")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("Label store not found: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	records, err := sqlite.NewLabelRepository(db).GetAll(context.Background())
	if err != nil {
		log.Fatalf("Failed to read labels: %v", err)
	}

	if len(records) == 0 {
		fmt.Println("No labels recorded yet")
		return
	}

	if *classes {
		printClassCounts(records)
		return
	}

	for _, rec := range records {
		fmt.Printf("%5d  %s  %-36s  %-15s -> %-15s %3.0f%%  [%.0f,%.0f %.0fx%.0f]\n",
			rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.FrameID,
			rec.Class, rec.Type, rec.Score*100,
			rec.Box.X, rec.Box.Y, rec.Box.Width, rec.Box.Height)
	}
	fmt.Printf("\n%d label(s)\n", len(records))
}

// printClassCounts shows, per detected class, how often each label was given.
func printClassCounts(records []model.LabelRecord) {
	counts := make(map[string]map[string]int)
	for _, rec := range records {
		if counts[rec.Class] == nil {
			counts[rec.Class] = make(map[string]int)
		}
		counts[rec.Class][rec.Type]++
	}

	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	fmt.Printf("📊 Labels per class:\n")
	for _, class := range classes {
		total := 0
		for _, n := range counts[class] {
			total += n
		}
		fmt.Printf("   %s: %d\n", class, total)

		types := make([]string, 0, len(counts[class]))
		for t := range counts[class] {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Printf("      - %s: %d\n", t, counts[class][t])
		}
	}
}
