package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"resumematch/scanner-web/internal/config"
	"resumematch/scanner-web/internal/repositories"
	"resumematch/scanner-web/internal/services"
)

// cli holds what every subcommand shares: configuration and the tab the
// terminal session maps to.
type cli struct {
	cfg     *config.Config
	v       *viper.Viper
	storage repositories.TabStorage
	tab     *services.Tab
	close   func()
}

func newRootCmd() *cobra.Command {
	// Lifecycle logging is opt-in on the terminal.
	log.SetOutput(io.Discard)

	c := &cli{
		cfg:   config.Load(),
		v:     viper.New(),
		close: func() {},
	}

	root := &cobra.Command{
		Use:           "scanctl",
		Short:         "Match resumes against job descriptions from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.v.GetBool("verbose") {
				log.SetOutput(os.Stderr)
			}
			return c.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}

	flags := root.PersistentFlags()
	flags.String("backend", c.cfg.Backend.BaseURL, "backend base URL")
	flags.Duration("timeout", c.cfg.Backend.Timeout, "deadline for each backend call")
	flags.String("tab", fmt.Sprintf("tty-%d", os.Getppid()), "session scope; defaults to the parent shell")
	flags.String("storage", "file", "session storage driver (file, redis, postgres)")
	flags.String("storage-dir", c.cfg.Storage.Dir, "directory for the file storage driver")
	flags.Bool("json", false, "print JSON instead of text")
	flags.BoolP("verbose", "v", false, "log backend calls to stderr")

	c.v.SetEnvPrefix("SCANCTL")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	_ = c.v.BindPFlags(flags)

	root.AddCommand(
		registerCmd(c),
		loginCmd(c),
		logoutCmd(c),
		whoamiCmd(c),
		scanCmd(c),
		saveCmd(c),
		historyCmd(c),
		loadCmd(c),
	)

	return root
}

func (c *cli) open(ctx context.Context) error {
	cfg := *c.cfg
	cfg.Storage.Driver = c.v.GetString("storage")
	cfg.Storage.Dir = c.v.GetString("storage-dir")

	storage, closeStorage, err := config.OpenTabStorage(ctx, &cfg)
	if err != nil {
		return err
	}
	c.storage = storage
	c.close = closeStorage

	tab, err := services.NewTab(c.v.GetString("tab"), storage, services.PipelineConfig{
		BaseURL: c.v.GetString("backend"),
		Timeout: c.v.GetDuration("timeout"),
	}, services.NewDocumentParserService(c.cfg.Upload.MaxFileSize))
	if err != nil {
		return err
	}
	c.tab = tab

	if err := tab.Auth.Rehydrate(ctx); err != nil {
		return err
	}
	return tab.Session.Touch(ctx)
}

var errNotSignedIn = errors.New("not signed in, run `scanctl login` first")

// requireAuth is the terminal's route guard.
func (c *cli) requireAuth(cmd *cobra.Command) error {
	decision := services.Guard(c.tab.Auth.State(), cmd.CommandPath())
	if decision.Kind != services.DecisionRender {
		return errNotSignedIn
	}
	return nil
}

// putState stores v as JSON next to the session of this terminal. Logout
// clears it with the rest of the tab.
func (c *cli) putState(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return c.storage.SetItem(ctx, c.tab.ID, key, string(data))
}

// getState decodes the value stored under key into v and reports whether
// one was found.
func (c *cli) getState(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := c.storage.GetItem(ctx, c.tab.ID, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *cli) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) wantJSON() bool {
	return c.v.GetBool("json")
}

// password takes --password, then SCANCTL_PASSWORD, then one line of stdin.
func (c *cli) password(cmd *cobra.Command) (string, error) {
	if flag, _ := cmd.Flags().GetString("password"); flag != "" {
		return flag, nil
	}
	if env := c.v.GetString("password"); env != "" {
		return env, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
