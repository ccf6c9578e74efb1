package cli

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/chzyer/readline"
)

// Terminal is a line editor that doubles as the output writer. Text written
// after the last newline becomes the prompt of the next Readline, so callers
// can print a question and read the answer without readline redrawing over it.
type Terminal struct {
	rl *readline.Instance

	mu      sync.Mutex
	pending bytes.Buffer
}

// NewTerminal opens a readline instance on the process terminal. An empty
// historyFile disables history.
func NewTerminal(historyFile string) (*Terminal, error) {
	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:            historyFile,
		DisableAutoSaveHistory: false,
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
	})
	if err != nil {
		return nil, err
	}
	return &Terminal{rl: rl}, nil
}

// Write prints complete lines and keeps the trailing partial line as the
// next prompt.
func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending.Write(p)
	data := t.pending.Bytes()
	i := bytes.LastIndexByte(data, '\n')
	if i < 0 {
		return len(p), nil
	}
	if _, err := t.rl.Stdout().Write(data[:i+1]); err != nil {
		return 0, err
	}
	rest := append([]byte(nil), data[i+1:]...)
	t.pending.Reset()
	t.pending.Write(rest)
	return len(p), nil
}

// Readline reads one line using the pending text as prompt. Ctrl+C and
// Ctrl+D both end input with io.EOF.
func (t *Terminal) Readline() (string, error) {
	t.mu.Lock()
	t.rl.SetPrompt(t.pending.String())
	t.pending.Reset()
	t.mu.Unlock()

	line, err := t.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	return t.rl.Close()
}
