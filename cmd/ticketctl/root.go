package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ticketdesk/internal/client"
)

const (
	cfgKeyServer   = "server"
	cfgKeyUser     = "user"
	cfgKeyPassword = "password"
	cfgKeyJSON     = "json"
	cfgKeyRetries  = "retries"
	cfgKeyVerbose  = "verbose"

	envPrefix = "TICKETCTL"
)

// cli carries per-invocation state shared by subcommands.
type cli struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "ticketctl",
		Short:         "ticketctl manages tickets on a ticketdesk server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configFile, "config", "", "config file (default: ./ticketctl.yaml)")
	pf.String(cfgKeyServer, "http://127.0.0.1:8080", "server base URL")
	pf.String(cfgKeyUser, "demo1", "login username")
	pf.String(cfgKeyPassword, "welcome", "login password")
	pf.Bool(cfgKeyJSON, false, "output as JSON")
	pf.Int(cfgKeyRetries, 2, "retries for idempotent requests")
	pf.BoolP(cfgKeyVerbose, "v", false, "log HTTP requests to stderr")
	for _, k := range []string{cfgKeyServer, cfgKeyUser, cfgKeyPassword, cfgKeyJSON, cfgKeyRetries, cfgKeyVerbose} {
		_ = c.v.BindPFlag(k, pf.Lookup(k))
	}

	root.AddCommand(
		newCreateCmd(c),
		newListCmd(c),
		newDeleteCmd(c),
		newHelloCmd(c),
	)
	return root
}

// loadConfig applies, lowest first: flag defaults, ticketctl.yaml,
// TICKETCTL_* environment, explicit flags.
func (c *cli) loadConfig() error {
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if c.configFile != "" {
		c.v.SetConfigFile(c.configFile)
	} else {
		c.v.SetConfigName("ticketctl")
		c.v.SetConfigType("yaml")
		c.v.AddConfigPath(".")
	}
	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func (c *cli) logger(cmd *cobra.Command) *slog.Logger {
	if !c.v.GetBool(cfgKeyVerbose) {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{Level: slog.LevelDebug, TimeFormat: time.Kitchen}))
}

func (c *cli) client(cmd *cobra.Command) (*client.Client, error) {
	return client.New(c.v.GetString(cfgKeyServer),
		client.WithLogger(c.logger(cmd)),
		client.WithRetries(c.v.GetInt(cfgKeyRetries)),
	)
}

// session returns a client that is already logged in.
func (c *cli) session(cmd *cobra.Command) (*client.Client, error) {
	cl, err := c.client(cmd)
	if err != nil {
		return nil, err
	}
	if err := cl.Login(cmd.Context(), c.v.GetString(cfgKeyUser), c.v.GetString(cfgKeyPassword)); err != nil {
		return nil, err
	}
	return cl, nil
}
