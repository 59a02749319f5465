// Package app holds the command line contract shared by the three MCP3021
// tools: flags, configuration assembly, wiring and exit codes.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ericogr/mcp3021-reader/pkg/config"
	"github.com/ericogr/mcp3021-reader/pkg/logging"
	"github.com/ericogr/mcp3021-reader/pkg/output"
	"github.com/ericogr/mcp3021-reader/pkg/output/console"
	"github.com/ericogr/mcp3021-reader/pkg/output/mqtt"
	"github.com/ericogr/mcp3021-reader/pkg/sampler"
	"github.com/ericogr/mcp3021-reader/pkg/sensor"
	"github.com/ericogr/mcp3021-reader/pkg/thermistor"
)

// Variant describes one tool.
type Variant struct {
	Name       string
	Usage      string
	Transport  string
	Thermistor bool
}

var (
	FileHandle = Variant{
		Name:      "mcp3021-filehandle",
		Usage:     "Reads the MCP3021 ADC using a file handle",
		Transport: config.TransportFileHandle,
	}
	SMBus = Variant{
		Name:      "mcp3021-smbus",
		Usage:     "Reads the MCP3021 ADC using SMBus word reads",
		Transport: config.TransportWord,
	}
	Thermistor = Variant{
		Name:       "mcp3021-thermistor",
		Usage:      "Reads the MCP3021 ADC and prints the temperature",
		Transport:  config.TransportWord,
		Thermistor: true,
	}
)

// Flags.
const (
	flagDelay              = "delay"
	flagVRef               = "vref"
	flagResistance         = "resistance"
	flagBValue             = "bvalue"
	flagLocation           = "location"
	flagConfig             = "config"
	flagBus                = "i2c-bus"
	flagTransport          = "transport"
	flagSamples            = "samples"
	flagDebug              = "debug"
	flagMQTTServer         = "mqtt-server"
	flagMQTTUser           = "mqtt-user"
	flagMQTTPass           = "mqtt-pass"
	flagMQTTClientID       = "mqtt-client-id"
	flagMQTTTopic          = "mqtt-topic"
	flagMQTTDiscoveryTopic = "mqtt-discovery-topic"
)

// Runner runs a variant. The function fields let tests replace the bus and
// the broker.
type Runner struct {
	Variant Variant
	Stdout  io.Writer
	Stderr  io.Writer
	Open    func(config.Config) (sensor.Transport, error)
	NewMQTT func(config.MQTTConfig, *zap.SugaredLogger) (output.Output, error)
	Logger  *zap.SugaredLogger
	Clock   clock.Clock
}

func New(v Variant) *Runner {
	return &Runner{
		Variant: v,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Open:    sensor.Open,
		NewMQTT: mqtt.NewMQTT,
	}
}

// usageError marks flag problems already reported by the help printer.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func (r *Runner) flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.Float64Flag{Name: flagDelay, Aliases: []string{"d"}, Value: config.DefaultDelay, Usage: "the delay in seconds between readings"},
		&cli.Float64Flag{Name: flagVRef, Aliases: []string{"v"}, Value: config.DefaultVRef, Usage: "the reference voltage"},
	}
	if r.Variant.Thermistor {
		flags = append(flags,
			&cli.StringFlag{Name: flagResistance, Aliases: []string{"r"}, Value: "10000", Usage: "the thermistor base resistance, e.g. 10000 or 10K"},
			&cli.IntFlag{Name: flagBValue, Aliases: []string{"b"}, Value: thermistor.DefaultBValue, Usage: "the thermistor B value"},
			&cli.StringFlag{Name: flagLocation, Aliases: []string{"l"}, Value: "b",
				Usage: "the location of the thermistor - either 't' (top - connected to Vcc) or 'b' (bottom - connected to ground)"},
		)
	}
	return append(flags,
		&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "load settings from a YAML `FILE`"},
		&cli.StringFlag{Name: flagBus, Value: config.DefaultBus, Usage: "the I2C bus number (/dev/i2c-N)"},
		&cli.StringFlag{Name: flagTransport, Value: r.Variant.Transport, Usage: "bus access: stream, word, filehandle or simulation"},
		&cli.IntFlag{Name: flagSamples, Aliases: []string{"n"}, Usage: "stop after `N` readings (0 runs until interrupted)"},
		&cli.BoolFlag{Name: flagDebug, Usage: "enable debug logging"},
		&cli.StringFlag{Name: flagMQTTServer, Usage: "MQTT server (tcp://host:port); enables the mqtt output"},
		&cli.StringFlag{Name: flagMQTTUser, Usage: "MQTT username"},
		&cli.StringFlag{Name: flagMQTTPass, Usage: "MQTT password"},
		&cli.StringFlag{Name: flagMQTTClientID, Usage: "MQTT client id"},
		&cli.StringFlag{Name: flagMQTTTopic, Usage: "MQTT state topic"},
		&cli.StringFlag{Name: flagMQTTDiscoveryTopic, Usage: "Home Assistant discovery topic, %s expands to the quantity"},
	)
}

// Run executes the tool with os.Args-style arguments and returns the
// process exit code.
func (r *Runner) Run(ctx context.Context, args []string) int {
	logger := r.Logger
	flags := r.flags()
	a := &cli.App{
		Name:        r.Variant.Name,
		Usage:       r.Variant.Usage,
		ArgsUsage:   "[Address]",
		Flags:       flags,
		HideVersion: true,
		Writer:      r.Stdout,
		ErrWriter:   r.Stderr,
		// errors are reported below, once
		ExitErrHandler: func(*cli.Context, error) {},
		OnUsageError: func(c *cli.Context, err error, _ bool) error {
			fmt.Fprintf(r.Stdout, "Incorrect Usage: %v\n\n", err)
			_ = cli.ShowAppHelp(c)
			return &usageError{err: err}
		},
		Before: func(c *cli.Context) error {
			if logger == nil {
				logger = logging.New(c.Bool(flagDebug))
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return r.action(c, logger)
		},
	}

	err := a.RunContext(ctx, permuteArgs(args, flags))
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	defer func() { _ = logger.Sync() }()
	return r.report(err, logger)
}

func (r *Runner) action(c *cli.Context, logger *zap.SugaredLogger) error {
	cfg, err := r.buildConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	transport, err := r.Open(cfg)
	if err != nil {
		return errors.Wrapf(err, "Unable to open the I2C device %s on bus %s", cfg.Address, cfg.Bus)
	}
	outputs, err := r.initOutputs(cfg, logger)
	if err != nil {
		if cerr := transport.Close(); cerr != nil {
			logger.Warnw("close failed", "error", cerr)
		}
		return err
	}
	defer func() {
		if cerr := closeAll(transport, outputs); cerr != nil {
			logger.Warnw("close failed", "error", cerr)
		}
	}()

	for _, o := range outputs {
		if err := o.Start(cfg); err != nil {
			return errors.Wrap(err, "start output")
		}
	}
	logger.Debugw("sampling", "address", cfg.Address.String(), "bus", cfg.Bus, "transport", cfg.Transport,
		"interval", cfg.Interval(), "thermistor", cfg.Thermistor != nil)

	opts := []sampler.Option{sampler.WithLogger(logger)}
	if r.Clock != nil {
		opts = append(opts, sampler.WithClock(r.Clock))
	}
	return sampler.New(cfg, transport, outputs, opts...).Run(c.Context)
}

// buildConfig layers defaults, the optional YAML file and explicit flags.
func (r *Runner) buildConfig(c *cli.Context) (config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Transport = r.Variant.Transport
	if r.Variant.Thermistor {
		cfg.Thermistor = config.DefaultThermistor()
	}
	if path := c.String(flagConfig); path != "" {
		loaded, err := config.Load(path, cfg)
		if err != nil {
			var ce *config.ConfigError
			if errors.As(err, &ce) {
				return cfg, ce
			}
			return cfg, &config.ConfigError{Msg: fmt.Sprintf("Unable to load the configuration file %s: %v", path, err), Err: err}
		}
		cfg = loaded
	}

	if c.NArg() > 1 {
		return cfg, &config.ConfigError{Msg: fmt.Sprintf("Unexpected arguments: %s", strings.Join(c.Args().Tail(), " "))}
	}
	if c.Args().Present() {
		addr, err := config.ParseAddress(c.Args().First())
		if err != nil {
			return cfg, err
		}
		cfg.Address = addr
	}
	if c.IsSet(flagDelay) {
		cfg.Delay = c.Float64(flagDelay)
	}
	if c.IsSet(flagVRef) {
		cfg.VRef = c.Float64(flagVRef)
	}
	if c.IsSet(flagBus) {
		cfg.Bus = c.String(flagBus)
	}
	if c.IsSet(flagTransport) {
		cfg.Transport = c.String(flagTransport)
	}
	if c.IsSet(flagSamples) {
		cfg.Samples = c.Int(flagSamples)
	}

	if !r.Variant.Thermistor {
		cfg.Thermistor = nil
	} else {
		if cfg.Thermistor == nil {
			cfg.Thermistor = config.DefaultThermistor()
		}
		th := *cfg.Thermistor
		if c.IsSet(flagResistance) {
			v, err := config.ParseResistance(c.String(flagResistance))
			if err != nil {
				return cfg, err
			}
			th.BaseResistance = v
		}
		if c.IsSet(flagBValue) {
			b := c.Int(flagBValue)
			if err := config.ValidateBValue(b); err != nil {
				return cfg, err
			}
			th.BValue = b
		}
		if c.IsSet(flagLocation) {
			loc, err := config.ParseLocation(c.String(flagLocation))
			if err != nil {
				return cfg, err
			}
			th.Location = loc
		}
		cfg.Thermistor = &th
	}

	applyMQTTFlags(c, &cfg)
	return cfg, nil
}

// applyMQTTFlags applies the mqtt flags to every mqtt output, creating one
// when none is configured.
func applyMQTTFlags(c *cli.Context, cfg *config.Config) {
	set := false
	for _, name := range []string{flagMQTTServer, flagMQTTUser, flagMQTTPass, flagMQTTClientID, flagMQTTTopic, flagMQTTDiscoveryTopic} {
		set = set || c.IsSet(name)
	}
	if !set {
		return
	}
	apply := func(m *config.MQTTConfig) {
		if c.IsSet(flagMQTTServer) {
			m.Server = c.String(flagMQTTServer)
		}
		if c.IsSet(flagMQTTUser) {
			m.Username = c.String(flagMQTTUser)
		}
		if c.IsSet(flagMQTTPass) {
			m.Password = c.String(flagMQTTPass)
		}
		if c.IsSet(flagMQTTClientID) {
			m.ClientID = c.String(flagMQTTClientID)
		}
		if c.IsSet(flagMQTTTopic) {
			m.StateTopic = c.String(flagMQTTTopic)
		}
		if c.IsSet(flagMQTTDiscoveryTopic) {
			m.DiscoveryTopic = c.String(flagMQTTDiscoveryTopic)
		}
	}
	outs := make([]config.OutputConfig, len(cfg.Outputs))
	copy(outs, cfg.Outputs)
	applied := false
	for i := range outs {
		if strings.ToLower(outs[i].Type) != config.OutputMQTT {
			continue
		}
		m := config.MQTTConfig{}
		if outs[i].MQTT != nil {
			m = *outs[i].MQTT
		}
		apply(&m)
		outs[i].MQTT = &m
		applied = true
	}
	if !applied {
		m := config.MQTTConfig{}
		apply(&m)
		outs = append(outs, config.OutputConfig{Type: config.OutputMQTT, MQTT: &m})
	}
	cfg.Outputs = outs
}

func (r *Runner) initOutputs(cfg config.Config, logger *zap.SugaredLogger) ([]output.Output, error) {
	outs := make([]output.Output, 0, len(cfg.Outputs))
	for _, oc := range cfg.Outputs {
		switch strings.ToLower(oc.Type) {
		case config.OutputConsole:
			outs = append(outs, console.NewConsole(r.Stdout))
		case config.OutputMQTT:
			o, err := r.NewMQTT(*oc.MQTT, logger)
			if err != nil {
				return nil, multierr.Append(errors.Wrap(err, "Unable to start the mqtt output"), closeAll(nil, outs))
			}
			outs = append(outs, o)
		default:
			return nil, errors.Errorf("unknown output %q", oc.Type)
		}
	}
	return outs, nil
}

func closeAll(transport sensor.Transport, outputs []output.Output) error {
	var err error
	for _, o := range outputs {
		err = multierr.Append(err, o.Close())
	}
	if transport != nil {
		err = multierr.Append(err, transport.Close())
	}
	return err
}

// report prints the user-facing message of err and maps it to an exit code.
func (r *Runner) report(err error, logger *zap.SugaredLogger) int {
	if err == nil {
		return 0
	}
	var (
		ue *usageError
		ce *config.ConfigError
		te *sensor.TransportError
		de *thermistor.DomainError
	)
	switch {
	case errors.As(err, &ue):
	case errors.As(err, &ce):
		fmt.Fprintln(r.Stdout, ce.Error())
	case errors.As(err, &te):
		fmt.Fprintln(r.Stdout, te.Error())
		logger.Errorw("read failed", "address", te.Addr.String(), "error", te.Err)
	case errors.As(err, &de):
		fmt.Fprintln(r.Stdout, de.Error())
	default:
		fmt.Fprintf(r.Stdout, "%v\n", err)
		logger.Errorw("failed", "error", err)
	}
	return 1
}

// permuteArgs moves the positional address behind the flags so that
// "tool 0x48 -d 1" parses like "tool -d 1 0x48".
func permuteArgs(args []string, flags []cli.Flag) []string {
	if len(args) < 2 {
		return args
	}
	takesValue := map[string]bool{}
	for _, f := range flags {
		_, isBool := f.(*cli.BoolFlag)
		for _, n := range f.Names() {
			takesValue[n] = !isBool
		}
	}

	opts := []string{args[0]}
	var positional []string
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		a := rest[i]
		if a == "--" {
			positional = append(positional, rest[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		opts = append(opts, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if takesValue[name] && i+1 < len(rest) {
			i++
			opts = append(opts, rest[i])
		}
	}
	if len(positional) == 0 {
		return opts
	}
	return append(append(opts, "--"), positional...)
}
