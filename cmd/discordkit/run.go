package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/discordkit/internal/buffer"
	"github.com/keepmind9/discordkit/internal/config"
	"github.com/keepmind9/discordkit/internal/discord"
	"github.com/keepmind9/discordkit/internal/facade"
	"github.com/keepmind9/discordkit/internal/listen"
	"github.com/keepmind9/discordkit/internal/logger"
	"github.com/keepmind9/discordkit/internal/metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

const shutdownTimeout = 10 * time.Second

var (
	configFile  string
	metricsAddr string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Connect the bot and keep it running",
		Long: `Load the configuration, queue presence changes and the announcement,
log in to Discord and replay everything queued once the session is ready.
Runs until interrupted, or exits after startup in daemon mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if metricsAddr != "" {
				cfg.Metrics.Addr = metricsAddr
			}

			if err := logger.InitLogger(cfg.LoggerOptions()); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger.WithFields(logrus.Fields{
				"config_file": configFile,
				"log_level":   cfg.Logging.Level,
				"log_file":    cfg.Logging.File,
			}).Info("logger-initialized")

			intents, err := cfg.Intents()
			if err != nil {
				return err
			}
			builder := discord.NewBuilder(
				discord.WithIntents(intents),
				discord.WithRESTTimeout(cfg.RESTTimeout()),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBot(ctx, cfg, builder)
		},
	}
)

// bot ties the facade to the request buffer and the metrics endpoint.
type bot struct {
	cfg     *config.Config
	facade  *facade.Facade
	buffer  *buffer.Buffer
	metrics *http.Server
}

func log() *logrus.Entry {
	return logger.WithComponent("run")
}

// newBot builds the facade and queues everything that needs the client.
// Nothing touches the network until start.
func newBot(cfg *config.Config, builder facade.Builder) (*bot, error) {
	b := &bot{cfg: cfg, buffer: buffer.New(cfg.BufferOptions())}

	opts := append(cfg.FacadeOptions(), facade.WithDeferredErrorHandler(func(err error) {
		log().WithField("error", err).Warn("startup-calls-failed")
	}))
	f, err := facade.Setup(builder, b.configure, opts...)
	if err != nil {
		_ = b.buffer.Close(context.Background())
		return nil, err
	}
	b.facade = f

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		b.metrics = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return b, nil
}

func (b *bot) configure(f *facade.Facade) error {
	if _, err := listen.OnNamed(f, "ready", func(_ *listen.Listener[*discordgo.Ready], e *discordgo.Ready) {
		fields := logrus.Fields{"guilds": len(e.Guilds)}
		if e.User != nil {
			fields["user"] = e.User.Username
		}
		log().WithFields(fields).Info("discord-ready-event")
	}); err != nil {
		return err
	}

	if _, err := listen.OnNamed(f, "ping", func(_ *listen.Listener[*discordgo.MessageCreate], m *discordgo.MessageCreate) {
		b.handleMessage(m)
	}); err != nil {
		return err
	}

	p := b.cfg.Presence
	if p.Username != "" {
		if err := f.ChangeUsername(p.Username); err != nil {
			return err
		}
	}
	if p.Avatar != "" {
		avatar, err := discord.LoadAvatar(p.Avatar)
		if err != nil {
			return err
		}
		if err := f.ChangeAvatar(avatar); err != nil {
			return err
		}
	}
	if p.Game != "" {
		if err := f.ChangeGameStatus(p.Game); err != nil {
			return err
		}
	}
	if err := f.ChangeStatus(b.cfg.Status()); err != nil {
		return err
	}

	if a := b.cfg.Announce; a.Channel != "" && a.Message != "" {
		return f.Defer("announce", func(r facade.Resource) error {
			return b.buffer.Request(func() error {
				_, err := r.SendMessage(a.Channel, a.Message)
				return err
			})
		})
	}
	return nil
}

// handleMessage answers "!ping" with the gateway latency.
func (b *bot) handleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if strings.TrimSpace(m.Content) != "!ping" {
		return
	}

	logger.WithFields(logrus.Fields{
		"component": "run",
		"user_id":   m.Author.ID,
		"channel":   m.ChannelID,
	}).Debug("received-ping")

	reply := fmt.Sprintf("pong (%s)", b.facade.ResponseTime().Round(time.Millisecond))
	channelID := m.ChannelID
	if err := b.buffer.Request(func() error {
		_, err := b.facade.SendMessage(channelID, reply)
		return err
	}); err != nil {
		log().WithField("error", err).Warn("ping-reply-dropped")
	}
}

func (b *bot) start(ctx context.Context) error {
	if b.metrics != nil {
		go func() {
			log().WithField("addr", b.metrics.Addr).Info("metrics-server-starting")
			if err := b.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log().WithField("error", err).Error("metrics-server-failed")
			}
		}()
	}
	return b.facade.Login(ctx)
}

// stop drains the buffer before logging out so queued replies still go out.
func (b *bot) stop(ctx context.Context) error {
	var errs error
	if err := b.buffer.Close(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("drain request buffer: %w", err))
	}
	if b.facade.IsReady() {
		errs = multierr.Append(errs, b.facade.Logout())
	}
	if b.metrics != nil {
		errs = multierr.Append(errs, b.metrics.Shutdown(ctx))
	}
	return errs
}

func runBot(ctx context.Context, cfg *config.Config, builder facade.Builder) error {
	b, err := newBot(cfg, builder)
	if err != nil {
		return err
	}

	if err := b.start(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return multierr.Append(fmt.Errorf("login failed: %w", err), b.stop(shutdownCtx))
	}

	if !cfg.Discord.Daemon {
		log().Info("discordkit-running")
		<-ctx.Done()
		log().Info("shutdown-signal-received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := b.stop(shutdownCtx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	log().Info("discordkit-stopped")
	return nil
}

func init() {
	runCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "Configuration file path")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}
