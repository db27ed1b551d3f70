package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"edusocial/internal/api"
)

func (cli *commandLine) login(ctx context.Context, args []string) error {
	fs := cli.flags("login")
	email := fs.String("email", "", "Account email. The password is prompted next.")
	otp := fs.String("otp", "", "Two-factor code, if the account has 2FA enabled.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" {
		fs.Usage()
		return errHelp
	}

	pwd, err := cli.prompt("Enter password:")
	if err != nil {
		return err
	}
	if pwd == "" {
		fs.Usage()
		return errHelp
	}

	res, err := cli.svc.Auth.Login(ctx, *email, pwd)
	if err != nil {
		var locked *api.LockedError
		var limited *api.RateLimitError
		switch {
		case errors.As(err, &locked):
			if locked.UnlockEmailSent {
				fmt.Fprintln(cli.out, "An unlock link was sent to your email.")
			}
		case errors.As(err, &limited):
			fmt.Fprintf(cli.out, "Try again in %s.\n", limited.RetryAfter.Round(time.Second))
		}
		return err
	}

	if res.Requires2FASetup {
		fmt.Fprintln(cli.out, "Two-factor setup is required; finish it in the web app.")
		return nil
	}
	if res.Requires2FA {
		code := *otp
		if code == "" {
			if code, err = cli.prompt("Enter 2FA code:"); err != nil {
				return err
			}
		}
		user, err := cli.svc.Auth.Login2FA(ctx, res.TempToken, code)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Logged in as %s\n", user.FullName)
		return nil
	}

	fmt.Fprintf(cli.out, "Logged in as %s\n", res.User.FullName)
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	if err := cli.svc.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Logged out")
	return nil
}

func (cli *commandLine) me(ctx context.Context) error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	u, err := cli.svc.Auth.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s (@%s) %s\n", u.FullName, u.Username, u.Email)
	return nil
}

func (cli *commandLine) profile(ctx context.Context, args []string) error {
	fs := cli.flags("profile")
	userID := fs.String("user", "", "User id.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *userID == "" {
		fs.Usage()
		return errHelp
	}

	p, err := cli.svc.User.Profile(ctx, *userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s (@%s)\n", p.User.FullName, p.User.Username)
	if p.User.Bio != "" {
		fmt.Fprintln(cli.out, p.User.Bio)
	}
	fmt.Fprintf(cli.out, "%d friends\n", len(p.Friends))
	printPosts(cli.out, p.Posts)
	return nil
}
