package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sitepulse/notify/internal/app"
	"github.com/sitepulse/notify/internal/domain"
)

// notifyctl is a development harness for the notification subsystem.
// It runs the same wiring the embedding app uses, against whatever
// backend the environment points at.
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	a, err := app.Bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()

	switch os.Args[1] {
	case "feed":
		runFeed(ctx, a)
	case "status":
		runStatus(a)
	case "test":
		runTest(ctx, a)
	case "watch":
		runWatch(ctx, a)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: notifyctl <command>

Commands:
  feed    print the merged notification feed for the current session
  status  print the push registration state
  test    deliver a local test notification
  watch   run the subsystem and stream incoming notifications`)
}

func runFeed(ctx context.Context, a *app.App) {
	user, err := a.Sessions.CurrentUser(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "No session on this device")
		os.Exit(1)
	}

	records, unread := a.Feed.Feed(ctx, user)
	fmt.Printf("%d notifications, %d unread\n\n", len(records), unread)
	for _, rec := range records {
		marker := " "
		if !rec.IsRead {
			marker = "*"
		}
		fmt.Printf("%s [%s] %s  %s\n      %s\n",
			marker, rec.Source, rec.Timestamp.Format(time.RFC3339), rec.Title, rec.Body)
	}
}

func runStatus(a *app.App) {
	state, reason := a.Tokens.CurrentState()
	fmt.Printf("state:      %s\n", state)
	if reason != "" {
		fmt.Printf("reason:     %s\n", reason)
	}
	fmt.Printf("registered: %v\n", a.Tokens.IsTokenRegistered())
	if tok := a.Tokens.CurrentToken(); tok != "" {
		fmt.Printf("token:      %s\n", tok)
	}
}

func runTest(ctx context.Context, a *app.App) {
	if a.Dispatch.ScheduleTestNotification(ctx, "Test Notification", "This is a test notification from notifyctl") {
		fmt.Println("Test notification recorded")
		return
	}
	fmt.Fprintln(os.Stderr, "Test notification failed, see logs")
	os.Exit(1)
}

func runWatch(ctx context.Context, a *app.App) {
	if err := a.Start(ctx, true); err != nil {
		if err == domain.ErrNoSession {
			fmt.Fprintln(os.Stderr, "No session on this device, log in first")
			os.Exit(1)
		}
		a.Logger.Fatal("Failed to start", zap.Error(err))
	}

	unsubscribe := a.Store.Subscribe(func() {
		records := a.Store.List(ctx)
		if len(records) == 0 {
			return
		}
		rec := records[0]
		fmt.Printf("[%s] %s: %s\n", rec.Source, rec.Title, rec.Body)
	})
	defer unsubscribe()

	fmt.Println("Watching for notifications, Ctrl-C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Stopped")
}
