package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"edusocial/internal/models"
)

func printMessage(w io.Writer, m models.Message) {
	content := m.Content
	switch {
	case m.DeletedForEveryone:
		content = "(deleted)"
	case m.Type == models.MessageFile:
		content = fmt.Sprintf("[file] %s %s", m.FileName, m.FileURL)
	}
	status := ""
	if m.Status != "" && m.Status != models.MessageSent {
		status = " (" + m.Status + ")"
	}
	fmt.Fprintf(w, "%s %s: %s%s\n", m.CreatedAt.Local().Format("15:04"), m.SenderName, content, status)
}

func (cli *commandLine) chat(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	if err := cli.requireLogin(); err != nil {
		return err
	}

	fs := cli.flags("chat " + sub)
	conv := fs.String("conv", "", "Conversation id.")
	text := fs.String("text", "", "Message text (send).")
	path := fs.String("path", "", "File to send (file).")
	msgID := fs.String("msg", "", "Message id (delete).")
	all := fs.Bool("all", false, "Delete for everyone (delete).")
	userID := fs.String("user", "", "User id (start).")
	title := fs.String("title", "", "Group title (group).")
	users := fs.String("users", "", "Comma separated user ids (group).")
	if err := parse(fs, rest); err != nil {
		return err
	}

	needConv := func() error {
		if *conv == "" {
			fs.Usage()
			return errHelp
		}
		return nil
	}

	switch sub {
	case "conversations":
		convs, err := cli.svc.Chat.Conversations(ctx)
		if err != nil {
			return err
		}
		for _, c := range convs {
			name := c.Title
			if name == "" && len(c.Participants) > 0 {
				name = c.Participants[0].FullName
			}
			fmt.Fprintf(cli.out, "[%s] %s (%d unread): %s\n", c.ID, name, c.UnreadCount, c.LastMessage)
		}
		return nil

	case "history":
		if err := needConv(); err != nil {
			return err
		}
		list, err := cli.svc.Chat.Open(ctx, *conv)
		if err != nil {
			return err
		}
		defer cli.svc.Chat.Close(*conv)
		for _, m := range list.Messages() {
			printMessage(cli.out, m)
		}
		return nil

	case "send":
		if err := needConv(); err != nil {
			return err
		}
		if strings.TrimSpace(*text) == "" {
			fs.Usage()
			return errHelp
		}
		if _, err := cli.svc.Chat.Open(ctx, *conv); err != nil {
			return err
		}
		defer cli.svc.Chat.Close(*conv)
		m, err := cli.svc.Chat.Send(ctx, *conv, *text)
		if err != nil {
			return err
		}
		printMessage(cli.out, *m)
		return nil

	case "file":
		if err := needConv(); err != nil {
			return err
		}
		if *path == "" {
			fs.Usage()
			return errHelp
		}
		f, err := os.Open(*path)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		if _, err := cli.svc.Chat.Open(ctx, *conv); err != nil {
			return err
		}
		defer cli.svc.Chat.Close(*conv)
		m, err := cli.svc.Chat.SendFile(ctx, *conv, filepath.Base(*path), f, info.Size())
		if err != nil {
			return err
		}
		printMessage(cli.out, *m)
		return nil

	case "delete":
		if err := needConv(); err != nil {
			return err
		}
		if *msgID == "" {
			fs.Usage()
			return errHelp
		}
		if *all {
			if err := cli.connect(ctx); err != nil {
				return err
			}
		}
		if _, err := cli.svc.Chat.Open(ctx, *conv); err != nil {
			return err
		}
		defer cli.svc.Chat.Close(*conv)
		return cli.svc.Chat.Delete(ctx, *conv, *msgID, *all)

	case "listen":
		if err := needConv(); err != nil {
			return err
		}
		return cli.listen(ctx, *conv)

	case "start":
		if *userID == "" {
			fs.Usage()
			return errHelp
		}
		c, err := cli.svc.Chat.StartPrivate(ctx, *userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Conversation %s\n", c.ID)
		return nil

	case "group":
		ids := splitList(*users)
		if strings.TrimSpace(*title) == "" || len(ids) == 0 {
			fs.Usage()
			return errHelp
		}
		c, err := cli.svc.Chat.CreateGroup(ctx, *title, ids)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Conversation %s\n", c.ID)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

// listen connects, prints the history and every new message until
// interrupted. Lines typed on stdin are sent.
func (cli *commandLine) listen(ctx context.Context, conv string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.connect(ctx); err != nil {
		return err
	}
	defer cli.transport.Disconnect()

	list, err := cli.svc.Chat.Open(ctx, conv)
	if err != nil {
		return err
	}
	defer cli.svc.Chat.Close(conv)

	var mu sync.Mutex
	printed := make(map[string]bool)
	show := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, m := range list.Messages() {
			key := m.ID + "|" + m.Status
			if m.DeletedForEveryone {
				key += "|deleted"
			}
			if printed[key] {
				continue
			}
			printed[key] = true
			printMessage(cli.out, m)
		}
		if names := cli.svc.Chat.TypingUsers(conv); len(names) > 0 {
			fmt.Fprintf(cli.out, "  %s typing...\n", strings.Join(names, ", "))
		}
	}
	show()
	cli.svc.Chat.OnUpdate(func(id string) {
		if id == conv {
			show()
		}
	})

	lines := make(chan string)
	go readLines(os.Stdin, lines)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			// A failed send is reported by the notifier and kept as failed.
			_, _ = cli.svc.Chat.Send(ctx, conv, line)
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out <- sc.Text()
	}
}
