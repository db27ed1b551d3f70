package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"edusocial/internal/config"
	"edusocial/internal/logger"
	"edusocial/internal/realtime"
	"edusocial/internal/service"
	"edusocial/internal/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	svc       *service.Service
	session   *session.Session
	transport realtime.Transport
	cfg       *config.Config
	log       logger.Logger
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL [-otp CODE]             - log in, the password is prompted")
	fmt.Fprintln(cli.out, "  logout                                     - log out and drop cached data")
	fmt.Fprintln(cli.out, "  me                                         - show the logged in user")
	fmt.Fprintln(cli.out, "  profile -user ID                           - show a user's profile")
	fmt.Fprintln(cli.out, "  feed [-mode latest|trending] [-q TEXT]     - show the ranked feed")
	fmt.Fprintln(cli.out, "  post -text TEXT [-title TITLE]             - publish a post")
	fmt.Fprintln(cli.out, "  like -post ID | bookmark -post ID          - toggle a like or bookmark")
	fmt.Fprintln(cli.out, "  comment -post ID -text TEXT                - comment on a post")
	fmt.Fprintln(cli.out, "  comments -post ID                          - list a post's comments")
	fmt.Fprintln(cli.out, "  friends list|accept|reject|cancel|remove|add|suggest|search|watch")
	fmt.Fprintln(cli.out, "  chat conversations|history|send|file|delete|listen|start|group")
	fmt.Fprintln(cli.out, "  call start -conv ID [-type audio|video] | call watch")
	fmt.Fprintln(cli.out, "  courses all|enrolled|details|enroll")
	fmt.Fprintln(cli.out, "  events list|upcoming|show|register|cancel")
	fmt.Fprintln(cli.out, "  payment-listen [-addr HOST:PORT]           - wait for a payment redirect")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	name, rest := args[1], args[2:]
	switch name {
	case "login":
		return cli.login(ctx, rest)
	case "logout":
		return cli.logout(ctx)
	case "me":
		return cli.me(ctx)
	case "profile":
		return cli.profile(ctx, rest)
	case "feed":
		return cli.feed(ctx, rest)
	case "post":
		return cli.createPost(ctx, rest)
	case "like", "bookmark":
		return cli.toggle(ctx, name, rest)
	case "comment":
		return cli.comment(ctx, rest)
	case "comments":
		return cli.comments(ctx, rest)
	case "friends":
		return cli.friends(ctx, rest)
	case "chat":
		return cli.chat(ctx, rest)
	case "call":
		return cli.call(ctx, rest)
	case "courses":
		return cli.courses(ctx, rest)
	case "events":
		return cli.events(ctx, rest)
	case "payment-listen":
		return cli.paymentListen(ctx, rest)
	default:
		cli.printUsage()
		return errHelp
	}
}

// flags returns a FlagSet that reports to cli.out instead of exiting.
func (cli *commandLine) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse treats -h and bad flags alike: usage was printed, return errHelp.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errHelp
	}
	return nil
}

func subcommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "", nil
	}
	return args[0], args[1:]
}

func (cli *commandLine) requireLogin() error {
	if !cli.session.IsAuthenticated() {
		return service.ErrNotAuthenticated
	}
	return nil
}

// connect opens the realtime transport with the session token.
func (cli *commandLine) connect(ctx context.Context) error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	if cli.transport.Connected() {
		return nil
	}
	cli.transport.OnStateChange(func(connected bool) {
		if connected {
			fmt.Fprintln(cli.out, "* connected")
		} else {
			fmt.Fprintln(cli.out, "* disconnected")
		}
	})
	return cli.transport.Connect(ctx, cli.session.Token())
}

func (cli *commandLine) prompt(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	b, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
