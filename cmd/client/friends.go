package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"edusocial/internal/models"
)

func printFriendships(w io.Writer, title string, list []models.Friendship) {
	fmt.Fprintf(w, "%s (%d)\n", title, len(list))
	for _, fr := range list {
		fmt.Fprintf(w, "  [%s] %s (@%s)\n", fr.ID, fr.User.FullName, fr.User.Username)
	}
}

func printUsers(w io.Writer, users []models.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users")
		return
	}
	for _, u := range users {
		fmt.Fprintf(w, "  [%s] %s (@%s)\n", u.ID, u.FullName, u.Username)
	}
}

func (cli *commandLine) friends(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	if sub == "" {
		sub = "list"
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}

	fs := cli.flags("friends " + sub)
	id := fs.String("id", "", "Friendship id (accept, reject, cancel, remove).")
	userID := fs.String("user", "", "User id (add).")
	query := fs.String("q", "", "Search text, at least two characters (search).")
	if err := parse(fs, rest); err != nil {
		return err
	}

	needID := func() error {
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		return nil
	}

	switch sub {
	case "list":
		b, err := cli.svc.Friend.List(ctx)
		if err != nil {
			return err
		}
		printFriendships(cli.out, "Friends", b.Friends)
		printFriendships(cli.out, "Pending requests", b.PendingRequests)
		printFriendships(cli.out, "Sent requests", b.SentRequests)
		return nil
	case "accept":
		if err := needID(); err != nil {
			return err
		}
		return cli.svc.Friend.Accept(ctx, *id)
	case "reject":
		if err := needID(); err != nil {
			return err
		}
		return cli.svc.Friend.Reject(ctx, *id)
	case "cancel":
		if err := needID(); err != nil {
			return err
		}
		return cli.svc.Friend.Cancel(ctx, *id)
	case "remove":
		if err := needID(); err != nil {
			return err
		}
		return cli.svc.Friend.Remove(ctx, *id)
	case "add":
		if *userID == "" {
			fs.Usage()
			return errHelp
		}
		_, err := cli.svc.Friend.Send(ctx, *userID)
		return err
	case "suggest":
		users, err := cli.svc.Friend.Suggestions(ctx)
		if err != nil {
			return err
		}
		printUsers(cli.out, users)
		return nil
	case "search":
		users, err := cli.svc.Friend.SearchUsers(ctx, *query)
		if err != nil {
			return err
		}
		printUsers(cli.out, users)
		return nil
	case "watch":
		if _, err := cli.svc.Friend.List(ctx); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		fmt.Fprintln(cli.out, "Watching for friend requests, Ctrl-C to stop")
		err := cli.svc.Friend.WatchPending(ctx, func(pending []models.Friendship) {
			printFriendships(cli.out, "Pending requests", pending)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	default:
		cli.printUsage()
		return errHelp
	}
}
