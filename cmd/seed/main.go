// Command seed populates a ReadAlong database with a few public-domain
// fables, handy for demos and manual client testing.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/readalongapp/readalong-server/internal/library"
	"github.com/readalongapp/readalong-server/internal/logger"
	"github.com/readalongapp/readalong-server/internal/store"
)

type seedDocument struct {
	title   string
	content string
}

var seedDocuments = []seedDocument{
	{
		title: "The Crow and the Pitcher",
		content: "A thirsty crow found a pitcher with a little water at the bottom, far beyond the reach of her beak.\n\n" +
			"She dropped pebbles into the pitcher one by one, and with each pebble the water crept higher.\n\n" +
			"At last the water rose within reach, and the crow drank her fill.\n\n" +
			"Little by little does the trick.",
	},
	{
		title: "The North Wind and the Sun",
		content: "The North Wind and the Sun disputed which of them was the stronger, and agreed to test it on a traveler wearing a cloak.\n\n" +
			"The North Wind blew with all his might, but the harder he blew the more closely the traveler wrapped the cloak around him.\n\n" +
			"Then the Sun shone out warmly, and the traveler took off his cloak at once.\n\n" +
			"Persuasion is better than force.",
	},
	{
		title: "The Tortoise and the Hare",
		content: "A hare laughed at a tortoise for being slow, so the tortoise challenged him to a race.\n\n" +
			"The hare darted far ahead, then lay down by the roadside and fell asleep.\n\n" +
			"The tortoise plodded on without pausing, passed the sleeping hare, and crossed the finish line first.\n\n" +
			"Slow and steady wins the race.",
	},
}

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		dataPath = filepath.Join(home, "ReadAlong")
	}

	lg := logger.New(logger.Config{})

	st, err := store.New(filepath.Join(dataPath, "db"), lg.Logger, store.NoopEmitter{})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	lib := library.NewService(st, lg)
	ctx := context.Background()

	for _, seed := range seedDocuments {
		doc, err := lib.Import(ctx, library.ImportRequest{
			Title:   seed.title,
			Content: seed.content,
		})
		if err != nil {
			log.Fatalf("Failed to import %q: %v", seed.title, err)
		}
		fmt.Printf("Imported %q (%s): %d paragraphs, %d words\n",
			doc.Title, doc.ID, len(doc.Paragraphs), doc.WordCount)
	}
}
