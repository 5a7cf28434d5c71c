// Command dbinspect dumps a read-only summary of a ReadAlong database:
// documents, reading positions, and server settings.
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/readalongapp/readalong-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		dbPath = filepath.Join(home, "ReadAlong", "db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	docCount := 0
	totalWords := 0
	totalParagraphs := 0

	err = db.View(func(txn *badger.Txn) error {
		if err := forPrefix(txn, "doc:", func(val []byte) error {
			var doc domain.Document
			if err := json.Unmarshal(val, &doc); err != nil {
				return err
			}

			docCount++
			totalWords += doc.WordCount
			totalParagraphs += len(doc.Paragraphs)

			if docCount <= 10 {
				fmt.Printf("Document: %s\n", doc.Title)
				fmt.Printf("  ID: %s\n", doc.ID)
				fmt.Printf("  Source: %s\n", doc.Source)
				fmt.Printf("  Paragraphs: %d\n", len(doc.Paragraphs))
				fmt.Printf("  Words: %d\n", doc.WordCount)
				fmt.Printf("  Added: %s\n", doc.AddedAt.Format("2006-01-02 15:04"))
				fmt.Println()
			}
			return nil
		}); err != nil {
			return err
		}

		fmt.Println("=== Reading Positions ===")
		fmt.Println()
		return forPrefix(txn, "pos:", func(val []byte) error {
			var pos domain.ReadingPosition
			if err := json.Unmarshal(val, &pos); err != nil {
				return err
			}
			fmt.Printf("%s: %.1fs (paragraph %d, %.0f%%), last read %s\n",
				pos.DocumentID,
				float64(pos.PositionMs)/1000,
				pos.ParagraphIndex,
				pos.ProgressPct,
				pos.LastReadAt.Format("2006-01-02 15:04"))
			return nil
		})
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Printf("Total documents: %d\n", docCount)
	fmt.Printf("Total paragraphs: %d\n", totalParagraphs)
	fmt.Printf("Total words: %d\n", totalWords)
	if docCount > 0 {
		fmt.Printf("Average words per document: %.0f\n", float64(totalWords)/float64(docCount))
	}
}

func forPrefix(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			log.Printf("Error reading %s: %v", it.Item().Key(), err)
		}
	}
	return nil
}
