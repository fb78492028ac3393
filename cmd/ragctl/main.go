// Command ragctl queries a retrieval engine loaded from a seed file, for
// checking how a corpus answers before deploying it.
//
// Usage:
//
//	ragctl [--seed corpus.yaml] search [--category crm] [--top-k 5] [--threshold 0.01] QUERY...
//	ragctl [--seed corpus.yaml] context [--category crm] [--top-k 3] QUERY...
//	ragctl [--seed corpus.yaml] stats
//	ragctl [--seed corpus.yaml] terms [--prefix orch] [--limit 20]
//	ragctl [--seed corpus.yaml] publish [--brokers localhost:9092] [--topic knowledge-documents]
//	ragctl delete [--brokers localhost:9092] [--topic knowledge-documents] ID...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/docevents"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/source"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/logger"
)

const appName = "ragctl"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	if err := makeApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func makeApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "query a TF-IDF retrieval corpus from the command line"
	app.Writer = out
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "seed",
			EnvVar: "RAG_RETRIEVER_SEED_FILE",
			Usage:  "YAML seed file to index; the built-in corpus is used when empty",
		},
		cli.StringFlag{
			Name:   "log-level",
			Value:  "warn",
			EnvVar: "RAG_LOGGING_LEVEL",
			Usage:  "log level written to stderr",
		},
	}
	app.Before = func(c *cli.Context) error {
		slog.SetDefault(logger.New(os.Stderr, c.String("log-level"), "text"))
		return nil
	}

	kafkaFlags := []cli.Flag{
		cli.StringSliceFlag{Name: "brokers", EnvVar: "RAG_KAFKA_BROKERS", Usage: "kafka bootstrap brokers"},
		cli.StringFlag{Name: "topic", Value: "knowledge-documents", Usage: "document events topic"},
	}
	categoryFlag := cli.StringFlag{Name: "category, c", Usage: "restrict results to a use case (untagged documents always match)"}
	app.Commands = []cli.Command{
		{
			Name:      "search",
			Usage:     "rank documents against a query",
			ArgsUsage: "QUERY...",
			Flags: []cli.Flag{
				categoryFlag,
				cli.IntFlag{Name: "top-k, k", Value: retriever.DefaultTopK, Usage: "maximum results"},
				cli.Float64Flag{Name: "threshold, t", Value: retriever.DefaultThreshold, Usage: "minimum score"},
			},
			Action: runSearch,
		},
		{
			Name:      "context",
			Usage:     "render the best matches as a context block",
			ArgsUsage: "QUERY...",
			Flags: []cli.Flag{
				categoryFlag,
				cli.IntFlag{Name: "top-k, k", Value: retriever.DefaultContextTopK, Usage: "maximum chunks"},
			},
			Action: runContext,
		},
		{
			Name:   "stats",
			Usage:  "print corpus statistics",
			Action: runStats,
		},
		{
			Name:  "terms",
			Usage: "list indexed terms with document frequency and IDF",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "prefix, p", Usage: "only terms starting with this prefix"},
				cli.IntFlag{Name: "limit, n", Usage: "maximum terms to print; 0 prints all"},
			},
			Action: runTerms,
		},
		{
			Name:   "publish",
			Usage:  "publish every seed document as an upsert event to Kafka",
			Flags:  kafkaFlags,
			Action: runPublish,
		},
		{
			Name:      "delete",
			Usage:     "publish delete events for document ids to Kafka",
			ArgsUsage: "ID...",
			Flags:     kafkaFlags,
			Action:    runDelete,
		},
	}
	return app
}

// newPublisher returns a document publisher and a func that closes its
// producer.
func newPublisher(c *cli.Context) (*docevents.Publisher, func(), error) {
	brokers := c.StringSlice("brokers")
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	topic := c.String("topic")
	if topic == "" {
		return nil, nil, fmt.Errorf("%s: --topic is required", c.Command.Name)
	}
	producer := kafka.NewProducer(config.KafkaConfig{Brokers: brokers}, topic)
	closeFn := func() {
		if err := producer.Close(); err != nil {
			slog.Warn("closing producer", "error", err)
		}
	}
	return docevents.NewPublisher(producer), closeFn, nil
}

func loadEngine(c *cli.Context) (*retriever.Engine, error) {
	var src source.Source = source.Embedded{}
	if path := c.GlobalString("seed"); path != "" {
		src = source.File{Path: path}
	}
	engine := retriever.New()
	if _, err := source.Load(context.Background(), engine, src); err != nil {
		return nil, err
	}
	return engine, nil
}

func queryArg(c *cli.Context) (string, error) {
	query := strings.Join(c.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%s: a query is required", c.Command.Name)
	}
	return query, nil
}

func runSearch(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}
	engine, err := loadEngine(c)
	if err != nil {
		return err
	}
	results := engine.Search(query, retriever.SearchOptions{
		TopK:      c.Int("top-k"),
		Category:  c.String("category"),
		Threshold: c.Float64("threshold"),
	})
	return writeJSON(c.App.Writer, results)
}

func runContext(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}
	engine, err := loadEngine(c)
	if err != nil {
		return err
	}
	text := engine.GetContext(query, c.String("category"), c.Int("top-k"))
	if text == "" {
		return errors.New("no matching documents")
	}
	_, err = fmt.Fprintln(c.App.Writer, text)
	return err
}

func runStats(c *cli.Context) error {
	engine, err := loadEngine(c)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, engine.Stats())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runTerms(c *cli.Context) error {
	engine, err := loadEngine(c)
	if err != nil {
		return err
	}
	prefix := strings.ToLower(c.String("prefix"))
	terms := make([]retriever.TermStat, 0)
	for _, t := range engine.Vocabulary() {
		if !strings.HasPrefix(t.Term, prefix) {
			continue
		}
		terms = append(terms, t)
		if limit := c.Int("limit"); limit > 0 && len(terms) == limit {
			break
		}
	}
	return writeJSON(c.App.Writer, terms)
}

func runPublish(c *cli.Context) error {
	var src source.Source = source.Embedded{}
	if path := c.GlobalString("seed"); path != "" {
		src = source.File{Path: path}
	}
	docs, err := src.Load(context.Background())
	if err != nil {
		return fmt.Errorf("loading %s: %w", src.Name(), err)
	}
	pub, closeFn, err := newPublisher(c)
	if err != nil {
		return err
	}
	defer closeFn()

	sent, err := pub.UpsertAll(context.Background(), docs)
	if err != nil {
		return fmt.Errorf("published %d of %d documents: %w", sent, len(docs), err)
	}
	_, err = fmt.Fprintf(c.App.Writer, "published %d documents from %s\n", sent, src.Name())
	return err
}

func runDelete(c *cli.Context) error {
	ids := []string(c.Args())
	if len(ids) == 0 {
		return errors.New("delete: at least one document id is required")
	}
	pub, closeFn, err := newPublisher(c)
	if err != nil {
		return err
	}
	defer closeFn()

	for _, id := range ids {
		if err := pub.Delete(context.Background(), id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(c.App.Writer, "published %d deletes\n", len(ids))
	return err
}
