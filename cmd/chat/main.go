package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"multimodal-rag-be/internal/bootstrap"
	"multimodal-rag-be/internal/config"
	"multimodal-rag-be/internal/dto"
	"multimodal-rag-be/internal/pkg/serverutils"
	"multimodal-rag-be/internal/service"
	"multimodal-rag-be/pkg/database"
	"multimodal-rag-be/pkg/rag/response"

	"github.com/fatih/color"
	"gorm.io/gorm"
)

var (
	info    = color.New(color.FgCyan)
	prompt  = color.New(color.FgGreen, color.Bold)
	answer  = color.New(color.FgWhite)
	sources = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
)

func main() {
	file := flag.String("file", "", "document to chat with (.pdf, .txt or .md)")
	k := flag.Int("k", 0, "chunks to retrieve per question (0 uses RAG_TOP_K)")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: chat -file document.pdf [-k 6]")
		os.Exit(2)
	}

	cfg := config.Load()
	cfg.App.IngestMode = "sync"

	var db *gorm.DB
	if cfg.NeedsDatabase() {
		var err error
		db, err = database.NewGormDBFromDSN(cfg.Database.Connection, false)
		if err != nil {
			log.Fatalf("Unable to connect to GORM DB: %v", err)
		}
	}

	container, err := bootstrap.NewContainer(db, cfg)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}
	defer container.Close()

	svc := container.RAGService
	ctx := context.Background()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Open document: %v", err)
	}
	info.Printf("Ingesting %s ...\n", filepath.Base(*file))
	up, err := svc.Upload(ctx, filepath.Base(*file), f)
	f.Close()
	if err != nil {
		report(err)
		os.Exit(1)
	}
	info.Printf("%s (%d chunks). Session %s\n", up.Message, up.Chunks, up.SessionId)
	info.Println("Ask a question. Commands: /sources /history /quit")

	var last []response.Citation
	scanner := bufio.NewScanner(os.Stdin)
	for {
		prompt.Print("\n> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/sources":
			printCitations(last)
			continue
		case "/history":
			printHistory(ctx, svc, up.SessionId)
			continue
		}

		last = ask(svc, up.SessionId, line, *k)
	}
}

// ask streams one answer. Ctrl-C abandons it without persisting the partial text.
func ask(svc service.IRAGService, sessionId, question string, k int) []response.Citation {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stream, err := svc.RunStream(ctx, &dto.ChatRequest{SessionId: sessionId, Question: question, K: k})
	if err != nil {
		report(err)
		return nil
	}
	defer stream.Close()

	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, context.Canceled) {
			fmt.Println()
			info.Println("(answer abandoned)")
			return nil
		}
		if err != nil {
			fmt.Println()
			report(err)
			return nil
		}
		answer.Print(token)
	}
	fmt.Println()

	citations := stream.Citations()
	if len(citations) > 0 {
		sources.Printf("(%d sources, /sources to list)\n", len(citations))
	}
	return citations
}

func printHistory(ctx context.Context, svc service.IRAGService, sessionId string) {
	hist, err := svc.History(ctx, sessionId)
	if err != nil {
		report(err)
		return
	}
	if len(hist.Turns) == 0 {
		info.Println("No turns yet.")
		return
	}
	for _, t := range hist.Turns {
		if t.Role == "user" {
			prompt.Printf("User: ")
		} else {
			info.Printf("Assistant: ")
		}
		fmt.Println(t.Content)
	}
}

func printCitations(citations []response.Citation) {
	if len(citations) == 0 {
		info.Println("No sources for the last answer.")
		return
	}
	for _, c := range citations {
		sources.Println(c.String())
	}
}

func report(err error) {
	_, body := serverutils.Classify(err)
	failure.Printf("error: %s (%v)\n", body.Message, err)
}
