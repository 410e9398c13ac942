package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chaz8081/ikawa-ble/internal/ble"
	"github.com/chaz8081/ikawa-ble/internal/config"
	"github.com/chaz8081/ikawa-ble/internal/ikawa"
	"github.com/chaz8081/ikawa-ble/internal/ikawapb"
	"github.com/chaz8081/ikawa-ble/internal/profilefile"
	"github.com/chaz8081/ikawa-ble/internal/roastlog"
	"github.com/chaz8081/ikawa-ble/internal/statusfeed"
)

const usage = `usage: ikawactl [-config path] [-debug] <command> [flags]

commands:
  info     print bootloader version, machine type and id (-settings lists settings)
  profile  print the loaded roast profile, or upload one with -set
  log      stream machine status as CSV until interrupted
  scan     list nearby roasters
  init     write the default config file
`

var (
	errUsage    = errors.New("usage")
	errDeclined = errors.New("declined")
)

// app carries what every command needs. Tests swap the adapter for an
// in-memory roaster.
type app struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	newAdapter func() ble.Adapter

	cfg *config.Config
	log *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	a := &app{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		newAdapter: func() ble.Adapter { return ble.NewBluetoothAdapter() },
	}
	code := a.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("ikawactl", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() { fmt.Fprint(a.stderr, usage) }
	configPath := fs.String("config", "", "path to config file (default: ~/.config/ikawa-ble/config.yaml)")
	debug := fs.Bool("debug", false, "log at debug level")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(a.stderr, "config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(a.stderr, "config validation: %v\n", err)
		return 1
	}
	level := config.ParseLogLevel(cfg.LogLevel)
	if *debug {
		level = slog.LevelDebug
	}
	a.cfg = cfg
	a.log = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "info":
		err = a.info(ctx, cmdArgs)
	case "profile":
		err = a.profile(ctx, cmdArgs)
	case "log":
		err = a.logStatus(ctx, cmdArgs)
	case "scan":
		err = a.scan(cmdArgs)
	case "init":
		err = a.initConfig()
	default:
		fmt.Fprintf(a.stderr, "unknown command %q\n\n", cmd)
		fs.Usage()
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	case errors.Is(err, errDeclined):
		return 1
	default:
		fmt.Fprintf(a.stderr, "ikawactl %s: %v\n", cmd, err)
		return 1
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault(config.DefaultConfigPath())
}

func (a *app) clientOptions() ikawa.ClientOptions {
	opts := ikawa.DefaultClientOptions()
	opts.Manager.ScanTimeout = a.cfg.BLE.ScanTimeout
	opts.Manager.ConnectTimeout = a.cfg.BLE.ConnectTimeout
	opts.Manager.ConnectRetryInterval = a.cfg.BLE.ConnectRetryInterval
	opts.Manager.Reconnect = a.cfg.BLE.Reconnect
	opts.Writer.MTU = a.cfg.BLE.MTU
	opts.Writer.RetryInterval = a.cfg.BLE.WriteRetryInterval
	opts.RetryTimeout = a.cfg.BLE.RetryTimeout
	opts.Logger = a.log
	return opts
}

// connect opens a client on the first roaster found. The caller closes it.
func (a *app) connect(ctx context.Context) (*ikawa.Client, error) {
	client := ikawa.NewClient(a.newAdapter(), a.clientOptions())
	if err := client.Open(ctx); err != nil {
		return nil, err
	}
	dev := client.Device()
	a.log.Info("[ikawa] connected", "name", dev.Name, "mac", dev.MAC)
	return client, nil
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("ikawactl "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parseFlags parses a command's flags. The flag package has already printed
// the problem when it fails.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return errUsage
	}
	return nil
}

func (a *app) info(ctx context.Context, args []string) error {
	fs := a.newFlagSet("info")
	settings := fs.Bool("settings", false, "list device settings instead")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	client, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if *settings {
		list, err := client.Settings(ctx)
		if err != nil {
			return err
		}
		for _, s := range list {
			fmt.Fprintf(a.stdout, "%s: %v\n", s.Name, s.Value)
		}
		return nil
	}

	info, err := client.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "BOOTLOADER_VERSION: %s\n", info.Bootloader())
	fmt.Fprintf(a.stdout, "MACHINE_TYPE: %s\n", info.Machine())
	fmt.Fprintf(a.stdout, "MACHINE_ID: %s\n", info.ID)
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := a.newFlagSet("profile")
	set := fs.Bool("set", false, "upload the profile given by -url or -file")
	shareURL := fs.String("url", "", "profile share URL")
	file := fs.String("file", "", "profile YAML file")
	noConfirm := fs.Bool("no-confirm", false, "upload without asking")
	quiet := fs.Bool("quiet", false, "do not print the profile")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *shareURL != "" && *file != "" {
		fmt.Fprintln(a.stderr, "-url and -file are mutually exclusive")
		return errUsage
	}

	var p *ikawapb.RoastProfile
	var err error
	switch {
	case *shareURL != "":
		p, err = ikawa.ProfileFromURL(*shareURL)
	case *file != "":
		p, err = profilefile.Load(*file)
	}
	if err != nil {
		return err
	}

	if p == nil {
		if *set {
			return errors.New("no profile to set, give -url or -file")
		}
		client, err := a.connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()
		if p, err = client.Profile(ctx); err != nil {
			return err
		}
	}

	if !*quiet {
		if err := a.printProfile(p); err != nil {
			return err
		}
	}
	if !*set {
		return nil
	}

	if !*noConfirm {
		ok, err := confirm(a.stdin, a.stdout, "Send this profile to the roaster?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.stderr, "Profile not sent")
			return errDeclined
		}
	}

	client, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.SetProfile(ctx, p); err != nil {
		return err
	}
	a.log.Info("[ikawa] profile set", "name", p.Name)
	return nil
}

// printProfile writes p as a profile file followed by its share link as a
// YAML comment, so the output can be saved and loaded back with -file.
func (a *app) printProfile(p *ikawapb.RoastProfile) error {
	data, err := profilefile.Marshal(p)
	if err != nil {
		return err
	}
	if _, err := a.stdout.Write(data); err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "# share: %s\n", ikawa.ProfileToURL(p))
	return err
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		return false, sc.Err()
	}
	switch strings.ToLower(strings.TrimSpace(sc.Text())) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (a *app) logStatus(ctx context.Context, args []string) error {
	fs := a.newFlagSet("log")
	noHeader := fs.Bool("no-header", false, "omit the CSV header row")
	out := fs.String("out", a.cfg.Log.Path, "CSV file to append to (default stdout)")
	listen := fs.String("listen", a.cfg.Feed.Listen, "serve a websocket status feed on this address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	dst := a.stdout
	if *out != "" {
		f, err := os.OpenFile(*out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		dst = f
	}
	w := roastlog.NewWriter(dst, !*noHeader)

	client, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var hub *statusfeed.Hub
	if *listen != "" {
		hub = statusfeed.NewHub(a.log)
		feedCtx, stopFeed := context.WithCancel(ctx)
		defer stopFeed()
		go func() {
			if err := hub.ListenAndServe(feedCtx, *listen); err != nil {
				a.log.Error("[feed] server stopped", "error", err)
			}
		}()
	}

	opts := roastlog.PollOptions{
		Interval:     a.cfg.Log.Interval,
		RetryTimeout: a.cfg.Log.RetryTimeout,
		Logger:       a.log,
	}
	return roastlog.Poll(ctx, client, opts, func(s roastlog.Sample) error {
		if err := w.Write(s); err != nil {
			return err
		}
		if hub != nil {
			if err := hub.Broadcast(s); err != nil {
				a.log.Warn("[feed] broadcast failed", "error", err)
			}
		}
		return nil
	})
}

func (a *app) scan(args []string) error {
	fs := a.newFlagSet("scan")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	a.log.Info("[BLE] scanning", "timeout", a.cfg.BLE.ScanTimeout)
	devices, err := ble.ScanForDevices(a.newAdapter(), a.cfg.BLE.ScanTimeout)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintln(a.stderr, "No roasters found")
		return nil
	}
	for _, d := range devices {
		fmt.Fprintf(a.stdout, "%s\t%s\t%d dBm\n", d.MAC, d.Name, d.RSSI)
	}
	return nil
}

func (a *app) initConfig() error {
	path, err := config.WriteDefault()
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintf(a.stdout, "Config already exists at %s\n", config.DefaultConfigPath())
		return nil
	}
	fmt.Fprintf(a.stdout, "Wrote %s\n", path)
	return nil
}
