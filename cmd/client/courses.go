package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"edusocial/internal/api"
	handlers "edusocial/internal/handler"
	"edusocial/internal/models"
	"edusocial/internal/service"
)

func printCourses(w io.Writer, courses []models.Course) {
	if len(courses) == 0 {
		fmt.Fprintln(w, "No courses")
		return
	}
	for _, c := range courses {
		price := "free"
		if !c.IsFree && c.Price > 0 {
			price = fmt.Sprintf("$%.2f", c.Price)
		}
		fmt.Fprintf(w, "[%s] %s (%s) %s\n", c.ID, c.Title, c.Instructor, price)
	}
}

func (cli *commandLine) courses(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	if sub == "" {
		sub = "enrolled"
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}

	fs := cli.flags("courses " + sub)
	id := fs.String("id", "", "Course id (details, enroll).")
	force := fs.Bool("force", false, "Skip the cached list.")
	if err := parse(fs, rest); err != nil {
		return err
	}

	switch sub {
	case "all":
		courses, err := cli.svc.Course.All(ctx, *force)
		if err != nil {
			return err
		}
		printCourses(cli.out, courses)
		return nil
	case "enrolled":
		courses, err := cli.svc.Course.Enrolled(ctx, *force)
		if err != nil {
			return err
		}
		printCourses(cli.out, courses)
		return nil
	case "details":
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		c, err := cli.svc.Course.Details(ctx, *id)
		if err != nil {
			return err
		}
		printCourses(cli.out, []models.Course{*c})
		if c.Description != "" {
			fmt.Fprintln(cli.out, c.Description)
		}
		return nil
	case "enroll":
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		c, err := cli.svc.Course.EnrollFree(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Enrolled in %s\n", c.Title)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) events(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	if sub == "" {
		sub = "upcoming"
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}

	fs := cli.flags("events " + sub)
	id := fs.String("id", "", "Event id (show, register, cancel).")
	category := fs.String("category", "", "Category filter (list).")
	difficulty := fs.String("difficulty", "", "Difficulty filter (list).")
	search := fs.String("q", "", "Search text (list).")
	if err := parse(fs, rest); err != nil {
		return err
	}

	printEvents := func(events []models.Event) {
		if len(events) == 0 {
			fmt.Fprintln(cli.out, "No events")
		}
		for _, e := range events {
			fmt.Fprintf(cli.out, "[%s] %s  %s %s  %d/%d\n", e.ID, e.Title,
				e.EventDate.Local().Format("2006-01-02"), e.EventTime, e.AttendeesCount, e.MaxAttendees)
		}
	}

	switch sub {
	case "list":
		events, err := cli.svc.Event.All(ctx, api.EventFilter{Category: *category, Difficulty: *difficulty, Search: *search})
		if err != nil {
			return err
		}
		printEvents(events)
		return nil
	case "upcoming":
		events, err := cli.svc.Event.Upcoming(ctx)
		if err != nil {
			return err
		}
		printEvents(events)
		return nil
	case "show", "register", "cancel":
		if *id == "" {
			fs.Usage()
			return errHelp
		}
	default:
		cli.printUsage()
		return errHelp
	}

	switch sub {
	case "register":
		return cli.svc.Event.Register(ctx, *id)
	case "cancel":
		return cli.svc.Event.Cancel(ctx, *id)
	}

	e, err := cli.svc.Event.Detail(ctx, *id)
	if err != nil {
		return err
	}
	printEvents([]models.Event{*e})
	if e.Description != "" {
		fmt.Fprintln(cli.out, e.Description)
	}
	for _, item := range e.Schedule {
		fmt.Fprintf(cli.out, "  %s %s\n", item.Time, item.Title)
	}
	fmt.Fprintf(cli.out, "registered=%t\n", cli.svc.Event.IsRegistered(ctx, *id))
	return nil
}

func (cli *commandLine) call(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	if err := cli.requireLogin(); err != nil {
		return err
	}

	fs := cli.flags("call " + sub)
	conv := fs.String("conv", "", "Conversation id (start).")
	callType := fs.String("type", models.CallAudio, "audio or video (start).")
	if err := parse(fs, rest); err != nil {
		return err
	}

	switch sub {
	case "start":
		if *conv == "" {
			fs.Usage()
			return errHelp
		}
		if err := cli.connect(ctx); err != nil {
			return err
		}
		defer cli.transport.Disconnect()
		c, err := cli.svc.Call.Initiate(ctx, *conv, *callType)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Call %s started\n", c.ID)
		return nil
	case "watch":
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		cli.svc.Call.Watch(func(c models.Call) {
			fmt.Fprintf(cli.out, "Incoming %s call %s from %s\n", c.Type, c.ID, c.CallerName)
		})
		if err := cli.connect(ctx); err != nil {
			return err
		}
		defer cli.transport.Disconnect()
		<-ctx.Done()
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

// paymentListen serves the payment redirect endpoint until one result was
// processed or the user interrupts.
func (cli *commandLine) paymentListen(ctx context.Context, args []string) error {
	fs := cli.flags("payment-listen")
	addr := fs.String("addr", cli.cfg.Callback.Addr, "Address the provider redirects to.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan *service.PaymentOutcome, 1)
	h := handlers.NewHandlers(cli.svc, cli.cfg, cli.log)
	h.OnOutcome = func(o *service.PaymentOutcome) {
		select {
		case done <- o:
		default:
		}
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", *addr)
	}
	srv := &http.Server{Handler: h.Router(), ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()
	fmt.Fprintf(cli.out, "Waiting for the payment result on http://%s/payment/result\n", ln.Addr())

	var outcome *service.PaymentOutcome
	select {
	case outcome = <-done:
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		cli.log.Warn("stopping callback server", err)
	}

	if outcome == nil {
		return nil
	}
	if outcome.Duplicate {
		fmt.Fprintln(cli.out, "Payment was already processed")
		return nil
	}
	fmt.Fprintf(cli.out, "Payment %s\n", outcome.Status)
	if outcome.Course != nil {
		fmt.Fprintf(cli.out, "Enrolled courses:\n")
		printCourses(cli.out, outcome.Enrolled)
	}
	return nil
}
