package main

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/theflywheel/chainmap"
)

type fruit struct {
	name  string
	color string
}

func main() {
	// Clean up previous example
	os.Remove("example.snap")

	tab, err := chainmap.New(7)
	if err != nil {
		log.Fatalf("Failed to create table: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	tab.SetLogger(logger)

	// Insert some data
	fruits := []*fruit{
		{name: "apple", color: "red"},
		{name: "banana", color: "yellow"},
		{name: "cherry", color: "red"},
		{name: "plum", color: "purple"},
	}
	for _, f := range fruits {
		if err := tab.Put(f.name, f); err != nil {
			log.Fatalf("Failed to insert %q: %v", f.name, err)
		}
	}
	fmt.Printf("Inserted %d entries\n", tab.Len())

	// Duplicate keys are rejected
	if err := tab.Put("apple", &fruit{name: "apple"}); err != nil {
		fmt.Printf("Second insert of \"apple\" rejected: %v\n", err)
	}

	// Retrieve by key
	if v, ok := tab.Get("banana"); ok {
		fmt.Printf("banana is %s\n", v.(*fruit).color)
	}

	// Locate an entry by a non-key criterion
	match, err := tab.Scan(func(v any) any {
		if f := v.(*fruit); f.color == "purple" {
			return f
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
	if match != nil {
		fmt.Printf("First purple fruit: %s\n", match.(*fruit).name)
	}

	// Diagnostic view of bucket occupancy
	fmt.Println("Table layout:")
	if err := tab.Dump(os.Stdout); err != nil {
		log.Fatalf("Dump failed: %v", err)
	}

	// Persist the table and restore it into a fresh one
	encode := func(v any) ([]byte, error) { return []byte(v.(*fruit).color), nil }
	if err := tab.Save("example.snap", encode); err != nil {
		log.Fatalf("Save failed: %v", err)
	}

	restored, err := chainmap.New(7)
	if err != nil {
		log.Fatalf("Failed to create table: %v", err)
	}
	decode := func(data []byte) (any, error) { return string(data), nil }
	if err := restored.Load("example.snap", decode); err != nil {
		log.Fatalf("Load failed: %v", err)
	}
	fmt.Printf("Restored %d entries from snapshot\n", restored.Len())

	// Delete an entry, then tear both tables down
	if err := tab.Delete("apple", func(any) {}); err != nil {
		log.Fatalf("Delete failed: %v", err)
	}
	if _, ok := tab.Get("apple"); !ok {
		fmt.Println("apple deleted")
	}

	if err := tab.Close(func(any) {}); err != nil {
		log.Fatalf("Close failed: %v", err)
	}
	if err := restored.Close(func(any) {}); err != nil {
		log.Fatalf("Close failed: %v", err)
	}
	fmt.Println("Example completed successfully")
}
