package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/screa/promokey/pkg/keyenc"
	"github.com/screa/promokey/pkg/promo"
	"github.com/screa/promokey/pkg/types"
)

// Errors
var (
	ErrNoCodeSpecified   = errors.New("must specify a promo code, --code-file, or --prompt")
	ErrNoCodesFile       = errors.New("must specify --codes-file")
	ErrScheduleRewritten = errors.New("schedule file must keep every published target as a prefix")
	ErrEmptyCode         = errors.New("promo code cannot be empty")
)

// Config holds the application configuration
type Config struct {
	Code         string
	CodeFile     string
	CodesFile    string
	Prompt       bool
	Target       uint64 // 0 means the schedule's current target
	MinTarget    uint64
	Version      int
	ScheduleFile string
	Workers      int
	Verbose      bool
	LogFile      string
	LogInterval  int // Logging interval in seconds
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Version:     int(keyenc.DefaultVersion),
		MinTarget:   promo.DefaultMinTarget,
		Workers:     runtime.NumCPU(),
		LogInterval: 5,
	}
}

// Validate validates the settings shared by every command
func (c *Config) Validate() error {
	if _, err := keyenc.VersionFromInt(c.Version); err != nil {
		return err
	}
	if c.Target != 0 && c.Target < c.MinTarget {
		return fmt.Errorf("%w: %d < %d", promo.ErrTargetTooSmall, c.Target, c.MinTarget)
	}
	if c.LogInterval < 0 {
		return fmt.Errorf("log interval must not be negative, got %d", c.LogInterval)
	}
	return nil
}

// VersionByte returns the validated WIF prefix
func (c *Config) VersionByte() (byte, error) {
	return keyenc.VersionFromInt(c.Version)
}

// DeriverOptions builds the promo options described by the configuration
func (c *Config) DeriverOptions() ([]promo.Option, error) {
	version, err := c.VersionByte()
	if err != nil {
		return nil, err
	}
	schedule, err := c.LoadSchedule()
	if err != nil {
		return nil, err
	}
	return []promo.Option{
		promo.WithSchedule(schedule),
		promo.WithTarget(c.Target),
		promo.WithVersion(version),
		promo.WithMinTarget(c.MinTarget),
	}, nil
}

// scheduleFile is the on-disk layout of a target schedule
type scheduleFile struct {
	Targets []uint64 `yaml:"targets"`
}

// LoadSchedule returns the built-in schedule, or the one in ScheduleFile.
// A file may only append to the built-in history.
func (c *Config) LoadSchedule() (types.Schedule, error) {
	builtin := promo.DefaultSchedule()
	if c.ScheduleFile == "" {
		return builtin, nil
	}

	content, err := os.ReadFile(c.ScheduleFile)
	if err != nil {
		return types.Schedule{}, fmt.Errorf("read schedule: %w", err)
	}
	return parseSchedule(content, builtin)
}

func parseSchedule(content []byte, builtin types.Schedule) (types.Schedule, error) {
	var f scheduleFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return types.Schedule{}, fmt.Errorf("parse schedule: %w", err)
	}

	s := types.NewSchedule(f.Targets...)
	if err := s.Validate(); err != nil {
		return types.Schedule{}, err
	}
	if !s.Extends(builtin) {
		return types.Schedule{}, ErrScheduleRewritten
	}
	return s, nil
}

// GetPromoCode returns the promo code from the flag, a file, or a hidden
// terminal prompt, in that order.
func (c *Config) GetPromoCode(args []string) (string, error) {
	var code string
	switch {
	case len(args) > 0:
		code = args[0]
	case c.Code != "":
		code = c.Code
	case c.CodeFile != "":
		content, err := os.ReadFile(c.CodeFile)
		if err != nil {
			return "", err
		}
		// Only the trailing newline is stripped; inner whitespace is part of the code.
		code = strings.TrimRight(string(content), "\r\n")
	case c.Prompt:
		var err error
		code, err = promptCode(os.Stdin, "Promo code: ")
		if err != nil {
			return "", err
		}
	default:
		return "", ErrNoCodeSpecified
	}

	if code == "" {
		return "", ErrEmptyCode
	}
	return code, nil
}

// promptCode reads a code with echo disabled when stdin is a terminal.
func promptCode(in *os.File, prompt string) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return readLine(in)
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read promo code: %w", err)
	}
	return string(b), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// GetCodes reads one promo code per line from CodesFile. Blank lines and
// lines starting with '#' are skipped.
func (c *Config) GetCodes() ([]string, error) {
	if c.CodesFile == "" {
		return nil, ErrNoCodesFile
	}
	f, err := os.Open(c.CodesFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCodes(f)
}

func readCodes(r io.Reader) ([]string, error) {
	var codes []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		codes = append(codes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}
