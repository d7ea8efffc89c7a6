package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/dukeofgo/librarius/internal/app"
	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/repo"
	"github.com/dukeofgo/librarius/internal/service"
)

type cli struct {
	cfgPath  string
	out      io.Writer
	open     func(ctx context.Context, cfgPath string) (*app.App, func(), error)
	password func(prompt string) (string, error)
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

var validate = validator.New()

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Library catalog operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.cfgPath, "config", os.Getenv("CONFIG_PATH"), "path to config yaml")
	root.SetOut(c.out)
	root.AddCommand(
		c.migrateCmd(),
		c.createSuperuserCmd(),
		c.setRoleCmd(),
		c.importCmd(),
	)
	return root
}

// withApp 打开依赖并在命令结束后释放
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, closeFn, err := c.open(ctx, c.cfgPath)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, a)
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users and books tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(_ context.Context, a *app.App) error {
				if err := repo.AutoMigrate(a.DB); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintln(c.out, "migrated")
				return nil
			})
		},
	}
}

func (c *cli) createSuperuserCmd() *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "create-superuser",
		Short: "Create a superuser account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validate.Var(email, "required,email"); err != nil {
				return fmt.Errorf("invalid --email %q", email)
			}
			if password == "" {
				p, err := c.password("Password: ")
				if err != nil {
					return err
				}
				confirm, err := c.password("Confirm password: ")
				if err != nil {
					return err
				}
				if p != confirm {
					return errors.New("passwords do not match")
				}
				password = p
			}
			if name == "" {
				name, _, _ = strings.Cut(email, "@")
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := a.Identity.CreateSuperuser(ctx, service.Registration{Email: email, Name: name, Password: password})
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "superuser %s created (id=%d)\n", u.Email, u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the email local part)")
	cmd.Flags().StringVar(&password, "password", "", "password; prompted when empty")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) setRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <email> <superuser|admin|user>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := domain.ParseRole(args[1])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := a.Identity.SetRole(ctx, args[0], role)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s is now %s\n", u.Email, u.Status)
				return nil
			})
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	var (
		file     string
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "import [isbn...]",
		Short: "Create books from the bibliographic lookup by isbn",
		RunE: func(cmd *cobra.Command, args []string) error {
			isbns := args
			if file != "" {
				more, err := readLines(file)
				if err != nil {
					return err
				}
				isbns = append(isbns, more...)
			}
			if len(isbns) == 0 {
				return errors.New("no isbn given")
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				r := importAll(ctx, a.Catalog, isbns, parallel)
				for _, f := range r.failed {
					fmt.Fprintf(c.out, "failed  %s: %v\n", f.isbn, f.err)
				}
				fmt.Fprintf(c.out, "created %d, skipped %d, failed %d\n", r.created, r.skipped, len(r.failed))
				if len(r.failed) > 0 {
					return fmt.Errorf("%d isbn(s) failed", len(r.failed))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "file with one isbn per line")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "concurrent lookups")
	return cmd
}

type importFailure struct {
	isbn string
	err  error
}

type importResult struct {
	created, skipped int
	failed           []importFailure
}

type bookCreator interface {
	CreateFromLookup(ctx context.Context, isbn string) (*domain.Book, error)
}

// importAll 已存在的 isbn 计为 skipped；单条失败不影响其它条目
func importAll(ctx context.Context, catalog bookCreator, isbns []string, parallel int) importResult {
	var (
		mu  sync.Mutex
		res importResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, parallel))
	for _, isbn := range isbns {
		g.Go(func() error {
			_, err := catalog.CreateFromLookup(gctx, isbn)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				res.created++
			case errors.Is(err, domain.ErrDuplicateISBN):
				res.skipped++
			default:
				res.failed = append(res.failed, importFailure{isbn: isbn, err: err})
			}
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
