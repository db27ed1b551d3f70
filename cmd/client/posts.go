package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"edusocial/internal/api"
	"edusocial/internal/feed"
	"edusocial/internal/models"
	"edusocial/internal/service"
)

func printPosts(w io.Writer, posts []models.Post) {
	for _, p := range posts {
		fmt.Fprintf(w, "[%s] %s  %s\n", p.ID, p.AuthorName, p.CreatedAt.Local().Format("2006-01-02 15:04"))
		if p.Title != "" {
			fmt.Fprintln(w, "  "+p.Title)
		}
		fmt.Fprintln(w, "  "+strings.ReplaceAll(p.Content, "\n", "\n  "))
		fmt.Fprintf(w, "  likes %d  comments %d  shares %d\n", p.LikesCount, p.CommentsCount, p.SharesCount)
	}
}

func (cli *commandLine) feed(ctx context.Context, args []string) error {
	fs := cli.flags("feed")
	mode := fs.String("mode", string(feed.Latest), "Ordering: latest or trending.")
	query := fs.String("q", "", "Only posts whose text or author contains this.")
	force := fs.Bool("force", false, "Skip the cached feed.")
	limit := fs.Int("n", 20, "Number of posts to show.")
	if err := parse(fs, args); err != nil {
		return err
	}
	m, err := feed.ParseMode(*mode)
	if err != nil {
		fs.Usage()
		return errHelp
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}

	posts, err := cli.svc.Post.Feed(ctx, service.FeedOptions{Mode: m, Query: *query, Force: *force})
	if err != nil {
		return err
	}
	if *limit > 0 && len(posts) > *limit {
		posts = posts[:*limit]
	}
	if len(posts) == 0 {
		fmt.Fprintln(cli.out, "No posts")
		return nil
	}
	printPosts(cli.out, posts)
	return nil
}

func (cli *commandLine) createPost(ctx context.Context, args []string) error {
	fs := cli.flags("post")
	text := fs.String("text", "", "Post content.")
	title := fs.String("title", "", "Optional title.")
	file := fs.String("file", "", "Optional image or video to attach.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*text) == "" {
		fs.Usage()
		return errHelp
	}

	req := api.CreatePostRequest{Title: *title, Content: *text}
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		req.Files = []api.Upload{{Name: filepath.Base(*file), Reader: f}}
	}

	p, err := cli.svc.Post.CreatePost(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Posted %s\n", p.ID)
	return nil
}

func (cli *commandLine) toggle(ctx context.Context, name string, args []string) error {
	fs := cli.flags(name)
	postID := fs.String("post", "", "Post id.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *postID == "" {
		fs.Usage()
		return errHelp
	}

	if name == "bookmark" {
		p, err := cli.svc.Post.ToggleBookmark(ctx, *postID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "bookmarked=%t\n", p.Bookmarked)
		return nil
	}
	p, err := cli.svc.Post.ToggleLike(ctx, *postID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "liked=%t likes=%d\n", p.Liked, p.LikesCount)
	return nil
}

func (cli *commandLine) comment(ctx context.Context, args []string) error {
	fs := cli.flags("comment")
	postID := fs.String("post", "", "Post id.")
	text := fs.String("text", "", "Comment text.")
	parent := fs.String("reply-to", "", "Parent comment id.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *postID == "" || strings.TrimSpace(*text) == "" {
		fs.Usage()
		return errHelp
	}

	c, err := cli.svc.Post.AddComment(ctx, *postID, *text, *parent)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Commented %s\n", c.ID)
	return nil
}

func (cli *commandLine) comments(ctx context.Context, args []string) error {
	fs := cli.flags("comments")
	postID := fs.String("post", "", "Post id.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *postID == "" {
		fs.Usage()
		return errHelp
	}

	list, err := cli.svc.Post.Comments(ctx, *postID)
	if err != nil {
		return err
	}
	for _, c := range list {
		indent := ""
		if c.ParentCommentID != "" {
			indent = "  "
		}
		fmt.Fprintf(cli.out, "%s[%s] %s: %s\n", indent, c.ID, c.AuthorName, c.Content)
	}
	return nil
}
