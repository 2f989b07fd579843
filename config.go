package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	cards          string
	clueLimit      int
	judgeTimeout   time.Duration
	judgeURL       string
	maxGuesses     int
	maxPlayers     int
	maxRounds      int
	minPlayers     int
	playerTimeout  time.Duration
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	similarity     float64
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.minPlayers < 2 {
		return fmt.Errorf("invalid minimum player count (must be at least 2): %d", c.minPlayers)
	}
	if c.maxPlayers < c.minPlayers {
		return fmt.Errorf("invalid maximum player count (must be at least --min-players): %d", c.maxPlayers)
	}
	if c.maxRounds < 1 {
		return fmt.Errorf("invalid round count (must be at least 1): %d", c.maxRounds)
	}
	if c.clueLimit < 1 {
		return fmt.Errorf("invalid clue limit (must be at least 1): %d", c.clueLimit)
	}
	if c.maxGuesses < 1 {
		return fmt.Errorf("invalid guess limit (must be at least 1): %d", c.maxGuesses)
	}
	if c.similarity <= 0 || c.similarity > 1 {
		return fmt.Errorf("invalid similarity threshold (must be in (0,1]): %f", c.similarity)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TABOO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "taboo",
		Short:         "A real-time word-guessing party game, served as a single webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: TABOO_BIND)")
	fs.StringVar(&cfg.cards, "cards", "", "path to a JSON card list overriding the embedded deck (env: TABOO_CARDS)")
	fs.IntVar(&cfg.clueLimit, "clue-limit", 4, "maximum clues per round (env: TABOO_CLUE_LIMIT)")
	fs.DurationVar(&cfg.judgeTimeout, "judge-timeout", 2*time.Second, "timeout for semantic judge calls (env: TABOO_JUDGE_TIMEOUT)")
	fs.StringVar(&cfg.judgeURL, "judge-url", "", "URL of an optional semantic matching service (env: TABOO_JUDGE_URL)")
	fs.IntVar(&cfg.maxGuesses, "max-guesses", 3, "wrong guesses allowed per player per round (env: TABOO_MAX_GUESSES)")
	fs.IntVar(&cfg.maxPlayers, "max-players", 10, "maximum players per room (env: TABOO_MAX_PLAYERS)")
	fs.IntVar(&cfg.maxRounds, "max-rounds", 6, "rounds per game (env: TABOO_MAX_ROUNDS)")
	fs.IntVar(&cfg.minPlayers, "min-players", 2, "players required to start a game (env: TABOO_MIN_PLAYERS)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 10*time.Minute, "time before disconnected players are removed (env: TABOO_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: TABOO_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: TABOO_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: TABOO_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are ended (env: TABOO_SESSION_TIMEOUT)")
	fs.Float64Var(&cfg.similarity, "similarity", 0.85, "bigram similarity threshold for word matching (env: TABOO_SIMILARITY)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: TABOO_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: TABOO_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: TABOO_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: TABOO_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("taboo v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
