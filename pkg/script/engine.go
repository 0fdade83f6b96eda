// Package script exposes the editor's command language: s-expression
// commands that build nodes, beams, plates, loads, and whole template
// structures against a live session. Each evaluation runs in a fresh
// sandboxed zygomys environment under a hard timeout; a newer evaluation
// cancels one still in flight between commands.
package script

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/gusset/pkg/model"
	"github.com/chazu/gusset/pkg/session"
)

// EvalError is a non-fatal error from user source code, such as a parse
// error or a failed command.
type EvalError struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalResult is the outcome of one evaluation. Errors are the user's to
// fix; Warnings report things that succeeded with caveats, like a remesh
// that orphaned edge loads.
type EvalResult struct {
	Errors   []EvalError `json:"errors,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Engine evaluates command source against sessions. It is safe for
// concurrent use; each Evaluate gets a fresh sandbox, and starting a new
// evaluation cancels the side effects of any previous one still running.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	stop       chan struct{}

	logger *log.Logger
}

// NewEngine creates an engine. A nil logger falls back to the default.
func NewEngine(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{logger: logger}
}

// Evaluate runs source against the session's model.
//
// Return semantics:
//   - success: result with empty Errors, nil error
//   - parse or command failure: result carrying Errors, nil error
//   - fatal failure (timeout, supersede, panic): nil result, error
//
// Commands apply in order; on a failed command the ones before it stay
// applied, like an interactive command console.
func (e *Engine) Evaluate(source string, sess *session.Session) (*EvalResult, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	if e.stop != nil {
		close(e.stop)
	}
	stop := make(chan struct{})
	e.stop = stop
	e.mu.Unlock()

	ch := make(chan evalOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalOutcome{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		res, err := e.evaluate(source, sess, stop)
		ch <- evalOutcome{result: res, err: err}
	}()

	res, err := e.waitWithTimeout(ch, gen, stop)
	if err == nil {
		e.logger.Debug("script evaluated",
			"errors", len(res.Errors), "warnings", len(res.Warnings))
	}
	return res, err
}

func (e *Engine) evaluate(source string, sess *session.Session, stop chan struct{}) (*EvalResult, error) {
	res := &EvalResult{}
	if strings.TrimSpace(source) == "" {
		return res, nil
	}

	b := &builder{sess: sess, result: res, stop: stop}
	if err := b.mutate(func(m *model.Model) error {
		lc := m.DefaultCase()
		if lc == nil {
			return errors.New("model has no default load case")
		}
		b.active = lc.ID
		return nil
	}); err != nil {
		return nil, err
	}

	// Sandbox mode keeps user code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		res.Errors = parseZygomysError(err)
		return res, nil
	}
	if _, err := env.Run(); err != nil {
		if b.canceled {
			return nil, errCanceled
		}
		res.Errors = parseZygomysError(err)
		return res, nil
	}
	return res, nil
}

// linePattern matches zygomys messages of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches the plainer "line N: ..." form.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalError records,
// extracting a line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
