package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/keeweb/keeweb-native-messaging-host/internal/companion"
	"github.com/keeweb/keeweb-native-messaging-host/internal/config"
	clierrors "github.com/keeweb/keeweb-native-messaging-host/internal/errors"
	"github.com/keeweb/keeweb-native-messaging-host/internal/observability"
	"github.com/keeweb/keeweb-native-messaging-host/internal/origin"
	"github.com/keeweb/keeweb-native-messaging-host/internal/pipe"
	"github.com/keeweb/keeweb-native-messaging-host/internal/relay"
)

// allowList combines the built-in origins with configured and developer
// extras.
func allowList(cfg *config.Config) *origin.AllowList {
	extra := cfg.ExtraOrigins()
	extra = append(extra, origin.ChromiumOrigins(os.Getenv(origin.DevExtensionIDsEnv))...)

	return origin.NewAllowList(extra...)
}

// originArgs validates the browser-supplied arguments before anything else
// is set up. It stores nothing: runRelay validates again to pick the origin.
func originArgs(cmd *cobra.Command, args []string) error {
	_, err := allowList(config.Load()).Validate(args)

	return originError(args, err)
}

func originError(args []string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, origin.ErrNoOrigin):
		return clierrors.OriginMissing()
	default:
		return clierrors.OriginNotAllowed(args)
	}
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		return clierrors.ConfigInvalid(err)
	}

	accepted, err := allowList(cfg).Validate(args)
	if err != nil {
		return originError(args, err)
	}

	logger := observability.FromContext(cmd.Context())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := relay.New(relayOptions(cfg, accepted, relay.Duplex{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}, logger))
	if err != nil {
		return clierrors.ConfigInvalid(err)
	}

	return relayError(r.Run(ctx))
}

func relayOptions(cfg *config.Config, accepted string, front relay.Duplex, logger *slog.Logger) relay.Options {
	opts := relay.Options{
		Origin: accepted,
		Front:  front,
		Resolver: &warningResolver{
			Resolver: pipe.NewResolver(pipe.Options{
				Override: cfg.SocketOverride(),
			}),
			logger: logger,
		},
		Dialer: relay.DialerFunc(func(ctx context.Context, address string) (io.ReadWriteCloser, error) {
			return pipe.Dial(ctx, address)
		}),
		Logger:         logger,
		Tracer:         observability.Tracer("github.com/keeweb/keeweb-native-messaging-host/relay"),
		MaxAttempts:    cfg.MaxAttempts(),
		RetryDelay:     orDisabled(cfg.RetryDelay()),
		DialTimeout:    orDisabled(cfg.DialTimeout()),
		ReadBufferSize: cfg.ReadBufferSize(),
		HighWater:      cfg.QueueHighWater(),
		LowWater:       cfg.QueueLowWater(),
		DrainTimeout:   orDisabled(cfg.DrainTimeout()),
	}

	if cfg.LaunchEnabled() {
		opts.Launcher = &companion.Launcher{
			Executable: cfg.CompanionExecutable(),
			Arg:        cfg.LaunchArg(),
			Logger:     logger,
		}
	}

	return opts
}

// orDisabled maps a configured zero duration, meaning "no wait", onto the
// relay's negative "disabled" value.
func orDisabled(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}

	return d
}

// warningResolver logs once when the derived address is longer than KeeWeb
// can listen on; dialing such an address never succeeds.
type warningResolver struct {
	pipe.Resolver

	logger *slog.Logger
	once   sync.Once
}

func (r *warningResolver) Resolve() (string, error) {
	address, err := r.Resolver.Resolve()
	if err == nil && pipe.TooLong(address) {
		r.once.Do(func() {
			r.logger.Warn("socket address exceeds platform limit",
				slog.String("address", address),
				slog.Int("length", len(address)),
			)
		})
	}

	return address, err
}

// relayError maps relay failures to exit codes.
func relayError(err error) error {
	if err == nil {
		return nil
	}

	kind, ok := relay.KindOf(err)
	if !ok {
		return err
	}

	switch kind {
	case relay.KindStdin, relay.KindStdout:
		return clierrors.FrontChannelFailed(err)
	case relay.KindDial:
		return clierrors.KeeWebUnreachable(err)
	case relay.KindSpawn:
		return clierrors.KeeWebLaunchFailed(err)
	case relay.KindBackChannel:
		return clierrors.BackChannelFailed(err)
	case relay.KindIdentity:
		return clierrors.IdentityUnavailable(err)
	default:
		return err
	}
}
