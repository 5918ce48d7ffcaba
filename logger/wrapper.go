package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
)

// WrapProcess runs the executable with its stderr piped through this process.
// JSON log lines are forwarded as is; everything after a panic line is
// collected and logged as one fatal entry when the child exits.
func WrapProcess(executable string, arg ...string) {
	wrapperLogger := NewLogger("Logs wrapper")
	defer handlePanic(wrapperLogger)

	r, w, err := os.Pipe()
	if err != nil {
		wrapperLogger.Fatal().Err(err).Msg("Could not create pipe for logs")
		os.Exit(1)
	}

	cmd := exec.Command(executable, arg...)
	cmd.Stderr = w

	if err = cmd.Start(); err != nil {
		wrapperLogger.Fatal().Err(err).Msg("Could not launch main process")
		os.Exit(1)
	}
	exitCodeCh := make(chan int)
	logsCh := make(chan []byte)

	go waitForCommandToExit(cmd, wrapperLogger, exitCodeCh)
	go collectLogs(r, wrapperLogger, logsCh)

	forwarder := newLogForwarder(os.Stderr, wrapperLogger)
	for {
		select {
		case exitCode := <-exitCodeCh:
			handleExit(exitCode, forwarder.panicLogs(), wrapperLogger)
		case logsLineBytes := <-logsCh:
			forwarder.handle(logsLineBytes)
		}
	}
}

func waitForCommandToExit(cmd *exec.Cmd, wrapperLogger zerolog.Logger, exitCodeCh chan<- int) {
	defer handlePanic(wrapperLogger)
	err := cmd.Wait()
	if err == nil {
		exitCodeCh <- 0
		return
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		exitCodeCh <- 1
		return
	}
	exitCodeCh <- exitErr.ExitCode()
}

func collectLogs(r io.Reader, wrapperLogger zerolog.Logger, logsCh chan<- []byte) {
	defer handlePanic(wrapperLogger)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		logsCh <- line
	}
	if err := scanner.Err(); err != nil {
		wrapperLogger.Fatal().Err(err).Msg("Error scanning piped main process's Stderr")
		os.Exit(1)
	}
}

func handleExit(exitCode int, panicLogs string, wrapperLogger zerolog.Logger) {
	if exitCode == 0 {
		wrapperLogger.Info().Msg("Exited with code 0")
	} else {
		wrapperLogger.
			Fatal().
			Err(errors.New(panicLogs)).
			Msgf("Panicked and exited with code: %d", exitCode)
	}
	os.Exit(exitCode)
}

type logForwarder struct {
	out        io.Writer
	logger     zerolog.Logger
	foundPanic bool
	panicBuf   strings.Builder
}

func newLogForwarder(out io.Writer, logger zerolog.Logger) *logForwarder {
	return &logForwarder{out: out, logger: logger}
}

func (f *logForwarder) handle(logsLineBytes []byte) {
	logsLine := string(logsLineBytes)
	if !f.foundPanic && strings.HasPrefix(logsLine, "panic") {
		f.foundPanic = true
	}
	switch {
	case len(logsLineBytes) == 0:
		return
	case f.foundPanic:
		f.panicBuf.WriteString(logsLine)
		f.panicBuf.WriteByte('\n')
	case isJSON(logsLineBytes):
		_, _ = fmt.Fprintln(f.out, logsLine)
	default:
		f.logger.Error().Msgf("Got log line that is not JSON formatted: '%s'", logsLine)
	}
}

func (f *logForwarder) panicLogs() string {
	return f.panicBuf.String()
}

func handlePanic(wrapperLogger zerolog.Logger) {
	r := recover()
	if r == nil {
		return
	}
	wrapperLogger.Fatal().
		Caller().
		Str("error", fmt.Sprint(r)).
		Str("stack_trace", string(debug.Stack())).
		Msg("Program panicked and exited")
}

func isJSON(b []byte) bool {
	var js json.RawMessage
	err := json.Unmarshal(b, &js)
	return err == nil && js != nil
}
