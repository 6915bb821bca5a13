// Command reader is a terminal reading client for development and demos.
// It opens a book from the catalog service, drives a reading session
// against the progress service, and surfaces questions and completion the
// way the apps do.
//
// Environment:
//
//	CATALOG_URL   catalog service base URL (default http://localhost:8081)
//	PROGRESS_URL  progress service base URL (default http://localhost:8082)
//	TOKEN         bearer token for both services (required)
//	BOOK_ID       book to open; omitted lists the catalog and exits
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/example/reading-platform/internal/platform/logging"
	"github.com/example/reading-platform/internal/platform/run"
	"github.com/example/reading-platform/reader"
	"github.com/example/reading-platform/reader/catalog"
	"github.com/example/reading-platform/reader/progress"
	"github.com/example/reading-platform/reader/session"
)

func main() {
	log, err := logging.New(envOr("LOG_LEVEL", "warn"), "reader")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	token := strings.TrimSpace(os.Getenv("TOKEN"))
	if token == "" {
		fmt.Fprintln(os.Stderr, "TOKEN is required")
		run.Exit(1)
	}

	catalogURL := envOr("CATALOG_URL", "http://localhost:8081")
	progressURL := envOr("PROGRESS_URL", "http://localhost:8082")

	cat := catalog.New(catalogURL, token)
	ctx := context.Background()

	bookID := strings.TrimSpace(os.Getenv("BOOK_ID"))
	if bookID == "" {
		if err := listCatalog(ctx, cat); err != nil {
			fmt.Fprintln(os.Stderr, err)
			run.Exit(1)
		}
		return
	}

	book, err := cat.BookByID(ctx, bookID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch book: %v\n", err)
		run.Exit(1)
	}

	store := progress.NewClient(progressURL, token, log)
	ctrl, err := session.Start(ctx, book, store, cat, session.Events{
		PageChanged: func(page int) {
			printPage(book, page)
		},
		QuestionDue: func(q reader.Question) {
			fmt.Printf("\n  ? %s\n", q.Text)
			for i, opt := range q.Options {
				fmt.Printf("    %d) %s\n", i+1, opt)
			}
			fmt.Println()
		},
		SessionComplete: func() {
			fmt.Printf("\n  *** You finished %q! ***\n\n", book.Title)
		},
	}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open book: %v\n", err)
		run.Exit(1)
	}

	fmt.Printf("%s by %s (%d pages)\n", book.Title, book.AuthorName, book.TotalPages)
	printPage(book, ctrl.CurrentPage())
	fmt.Println(`commands: n(ext) p(rev) g N b(ookmark) marks note TEXT notes toc q(uit)`)

	repl(ctx, ctrl, book)

	// Flush in-flight writes before exiting.
	ctrl.Wait()
}

func repl(ctx context.Context, ctrl *session.Controller, book *reader.Book) {
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			return
		}
		line := strings.TrimSpace(sc.Text())
		cmd, arg, _ := strings.Cut(line, " ")

		switch cmd {
		case "", "n", "next":
			ctrl.NextPage(ctx)
		case "p", "prev":
			ctrl.PrevPage(ctx)
		case "g", "go":
			n, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil {
				fmt.Println("usage: g N")
				continue
			}
			ctrl.GoToPage(ctx, n)
		case "b", "bookmark":
			if ctrl.Annotations().ToggleBookmark(ctx, ctrl.CurrentPage()) {
				fmt.Printf("bookmarked page %d\n", ctrl.CurrentPage())
			} else {
				fmt.Printf("removed bookmark on page %d\n", ctrl.CurrentPage())
			}
		case "marks":
			fmt.Printf("bookmarks: %v\n", ctrl.Annotations().Bookmarks())
		case "note":
			text := strings.TrimSpace(arg)
			if _, ok := ctrl.Annotations().AddNote(ctx, ctrl.CurrentPage(), text); !ok {
				fmt.Println("note text must not be empty")
				continue
			}
			fmt.Printf("noted on page %d\n", ctrl.CurrentPage())
		case "notes":
			for _, n := range ctrl.Annotations().NotesForPage(ctrl.CurrentPage()) {
				fmt.Printf("  [%s] %s\n", n.ID, n.Text)
			}
		case "toc":
			for _, item := range book.TableOfContents {
				fmt.Printf("  p.%-3d %s\n", item.PageNumber, item.Title)
			}
		case "q", "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}
	}
}

func printPage(book *reader.Book, n int) {
	page, ok := book.Page(n)
	if !ok {
		return
	}
	fmt.Printf("-- page %d/%d  %s\n", n, book.TotalPages, page.ImageURL)
}

func listCatalog(ctx context.Context, cat *catalog.Client) error {
	books, err := cat.ListBooks(ctx, 50, 0)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}
	for _, b := range books {
		marker := " "
		if b.IsPremium {
			marker = "*"
		}
		fmt.Printf("%s %-36s  %s (%s)\n", marker, b.ID, b.Title, b.AuthorName)
	}
	fmt.Println("\nset BOOK_ID to open a book; * marks premium titles")
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
